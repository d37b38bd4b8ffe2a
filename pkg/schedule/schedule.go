// Package schedule parses daily broadcast schedules published as HTML pages or
// RSS/Atom feeds into schedule entries.
package schedule

import (
	"bytes"
	"errors"
	"strings"
)

var (
	ErrEmptySchedule = errors.New("schedule document is empty")
	ErrNoEntries     = errors.New("schedule contains no entries")
)

// Entry is one slot of a schedule as published by the broadcaster.
type Entry struct {
	Title       string
	Description string
	StartTime   string
	URL         string
}

// Selectors holds the CSS selectors used to read HTML schedule pages. Title,
// Description, Time and Link are evaluated inside each Item.
type Selectors struct {
	Item        string
	Title       string
	Description string
	Time        string
	Link        string
}

// IsFeed guesses whether a schedule document is an RSS/Atom feed rather than
// an HTML page.
func IsFeed(data []byte, contentType string) bool {
	lct := strings.ToLower(contentType)
	if strings.Contains(lct, "rss") || strings.Contains(lct, "atom") {
		return true
	}
	if strings.Contains(lct, "html") {
		return false
	}

	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<?xml")) ||
		bytes.Contains(head, []byte("<rss")) ||
		bytes.Contains(head, []byte("<feed"))
}

// ExpandURL replaces the {date} placeholder of a schedule URL.
func ExpandURL(pattern, date string) string {
	return strings.ReplaceAll(pattern, "{date}", date)
}
