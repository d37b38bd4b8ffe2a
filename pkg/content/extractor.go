package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var errNoDescription = errors.New("description not found in HTML")

// maxDescriptionRunes bounds descriptions taken from page body text.
const maxDescriptionRunes = 600

// ExtractTitle extracts the episode title from HTML content with fallback mechanisms
func ExtractTitle(htmlContent string) (string, error) {
	// Try readability first
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if title := strings.TrimSpace(article.Title); title != "" {
			return title, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title, nil
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}
	if title, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title), nil
	}

	return "", fmt.Errorf("title not found in HTML")
}

// ExtractDescription extracts a synopsis for an episode page. Meta
// descriptions are preferred; otherwise the readable body text is used,
// truncated on a word boundary.
func ExtractDescription(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, sel := range []string{"meta[property='og:description']", "meta[name='description']"} {
		if desc, ok := doc.Find(sel).Attr("content"); ok && strings.TrimSpace(desc) != "" {
			return normalizeWhitespace(desc), nil
		}
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	if excerpt := normalizeWhitespace(article.Excerpt); excerpt != "" {
		return excerpt, nil
	}
	if text := normalizeWhitespace(article.TextContent); text != "" {
		return truncateWords(text, maxDescriptionRunes), nil
	}

	return "", errNoDescription
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateWords(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	cut := string(runes[:maxRunes])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
