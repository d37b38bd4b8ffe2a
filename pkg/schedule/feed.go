package schedule

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedParser reads schedules published as RSS/Atom feeds.
type FeedParser struct {
	feedParser *gofeed.Parser
	location   *time.Location
}

// NewFeedParser creates a feed parser. Publication times are converted to loc
// to derive the air date and start time; nil means UTC.
func NewFeedParser(loc *time.Location) *FeedParser {
	if loc == nil {
		loc = time.UTC
	}
	return &FeedParser{
		feedParser: gofeed.NewParser(),
		location:   loc,
	}
}

// Parse parses a feed document. When date is non-empty only items published
// on that day (YYYY-MM-DD, in the parser's location) are kept; items without
// a publication time are always kept.
func (p *FeedParser) Parse(data []byte, date string) ([]Entry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptySchedule
	}

	feed, err := p.feedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule feed: %w", err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, ErrNoEntries
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		entry := Entry{
			Title:       title,
			Description: strings.Join(strings.Fields(item.Description), " "),
			URL:         strings.TrimSpace(item.Link),
		}

		if item.PublishedParsed != nil {
			local := item.PublishedParsed.In(p.location)
			if date != "" && local.Format("2006-01-02") != date {
				continue
			}
			entry.StartTime = local.Format("15:04")
		}

		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}
