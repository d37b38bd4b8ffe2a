package schedule

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML extracts schedule entries from an HTML schedule page. Relative
// links are resolved against pageURL. Items without a title are skipped.
func ParseHTML(html, pageURL string, sel Selectors) ([]Entry, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmptySchedule
	}
	if sel.Item == "" {
		return nil, errors.New("item selector is empty")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, _ := url.Parse(pageURL)

	var entries []Entry
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		title := textOf(item, sel.Title)
		if title == "" {
			return
		}

		entry := Entry{
			Title:       title,
			Description: textOf(item, sel.Description),
			StartTime:   textOf(item, sel.Time),
		}

		if sel.Link != "" {
			if href, ok := item.Find(sel.Link).First().Attr("href"); ok && !isInPageLink(href) {
				entry.URL = resolve(base, href)
			}
		}

		entries = append(entries, entry)
	})

	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}

func textOf(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(item.Find(selector).First().Text()), " ")
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func isInPageLink(href string) bool {
	href = strings.TrimSpace(href)
	return strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:")
}
