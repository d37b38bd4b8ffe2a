package schedule

import (
	"errors"
	"testing"
)

const schedulePage = `
<html><body>
<ul class="schedule">
  <li class="programme">
    <span class="programme__time">18:00</span>
    <h3 class="programme__title">Evening   News</h3>
    <p class="programme__synopsis">The day's headlines.</p>
    <a href="/episodes/evening-news-2024-05-01">More</a>
  </li>
  <li class="programme">
    <span class="programme__time">19:00</span>
    <h3 class="programme__title">Garden Hour</h3>
    <a href="https://other.example.com/garden">More</a>
  </li>
  <li class="programme">
    <span class="programme__time">20:00</span>
  </li>
</ul>
</body></html>`

var defaultSelectors = Selectors{
	Item:        ".programme",
	Title:       ".programme__title",
	Description: ".programme__synopsis",
	Time:        ".programme__time",
	Link:        "a[href]",
}

func TestParseHTML(t *testing.T) {
	entries, err := ParseHTML(schedulePage, "https://tv.example.com/schedule/2024-05-01", defaultSelectors)
	if err != nil {
		t.Fatalf("ParseHTML returned error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Title != "Evening News" || first.StartTime != "18:00" || first.Description != "The day's headlines." {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if first.URL != "https://tv.example.com/episodes/evening-news-2024-05-01" {
		t.Errorf("relative link not resolved: %q", first.URL)
	}
	if entries[1].URL != "https://other.example.com/garden" || entries[1].Description != "" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestParseHTML_NoEntries(t *testing.T) {
	_, err := ParseHTML("<html><body><p>Off air</p></body></html>", "", defaultSelectors)
	if !errors.Is(err, ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
	if _, err := ParseHTML("  ", "", defaultSelectors); !errors.Is(err, ErrEmptySchedule) {
		t.Fatalf("expected ErrEmptySchedule, got %v", err)
	}
}

func TestFeedParser_Parse(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Channel One schedule</title>
		<item>
			<title>Morning Show</title>
			<link>https://tv.example.com/morning</link>
			<description>Breakfast   television.</description>
			<pubDate>Wed, 01 May 2024 07:00:00 GMT</pubDate>
		</item>
		<item>
			<title>Yesterday's Film</title>
			<link>https://tv.example.com/film</link>
			<pubDate>Tue, 30 Apr 2024 22:00:00 GMT</pubDate>
		</item>
		<item>
			<title>Undated Special</title>
			<link>https://tv.example.com/special</link>
		</item>
	</channel>
</rss>`

	entries, err := NewFeedParser(nil).Parse([]byte(feed), "2024-05-01")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Title != "Morning Show" || entries[0].StartTime != "07:00" || entries[0].Description != "Breakfast television." {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Title != "Undated Special" || entries[1].StartTime != "" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestIsFeed(t *testing.T) {
	cases := []struct {
		data        string
		contentType string
		want        bool
	}{
		{data: "<html></html>", contentType: "text/html; charset=utf-8", want: false},
		{data: "", contentType: "application/rss+xml", want: true},
		{data: `<?xml version="1.0"?><rss>`, contentType: "", want: true},
		{data: `  <feed xmlns="http://www.w3.org/2005/Atom">`, contentType: "application/octet-stream", want: true},
		{data: "<!doctype html><html>", contentType: "", want: false},
	}
	for _, tc := range cases {
		if got := IsFeed([]byte(tc.data), tc.contentType); got != tc.want {
			t.Errorf("IsFeed(%q, %q) = %v, want %v", tc.data, tc.contentType, got, tc.want)
		}
	}
}

func TestExpandURL(t *testing.T) {
	if got := ExpandURL("https://tv.example.com/{date}/listing", "2024-05-01"); got != "https://tv.example.com/2024-05-01/listing" {
		t.Fatalf("ExpandURL = %q", got)
	}
}
