package search

import (
	"html"
	"strings"
)

// Highlighter renders marked text. Open and Close wrap every merged span;
// Escape, when set, is applied to every slice of the original text (inside
// and outside the markers) before it is written.
type Highlighter struct {
	Open   string
	Close  string
	Escape func(string) string
}

var (
	// DefaultHighlighter wraps matches in <mark> tags and does not escape the
	// surrounding text. Callers that render into HTML should use
	// HTMLHighlighter instead.
	DefaultHighlighter = Highlighter{Open: "<mark>", Close: "</mark>"}

	// HTMLHighlighter is DefaultHighlighter with HTML escaping.
	HTMLHighlighter = Highlighter{Open: "<mark>", Close: "</mark>", Escape: html.EscapeString}
)

// Marked is a text together with the disjoint spans to emphasize in it. The
// text itself is never modified.
type Marked struct {
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`
}

// Segment is one slice of a Marked text.
type Segment struct {
	Text   string
	Marked bool
}

// Mark finds and merges the spans of every token over text.
func Mark(text string, tokens []string) Marked {
	return Marked{Text: text, Spans: MergeSpans(FindAllSpans(text, tokens))}
}

// Segments partitions the text into alternating unmarked and marked slices.
// Concatenating the slices yields the original text.
func (m Marked) Segments() []Segment {
	if len(m.Spans) == 0 {
		if m.Text == "" {
			return nil
		}
		return []Segment{{Text: m.Text}}
	}

	segments := make([]Segment, 0, 2*len(m.Spans)+1)
	pos := 0
	for _, s := range m.Spans {
		if pos < s.Start {
			segments = append(segments, Segment{Text: m.Text[pos:s.Start]})
		}
		segments = append(segments, Segment{Text: m.Text[s.Start:s.End], Marked: true})
		pos = s.End
	}
	if pos < len(m.Text) {
		segments = append(segments, Segment{Text: m.Text[pos:]})
	}
	return segments
}

// Highlight wraps every occurrence of the tokens in text with <mark> tags,
// without escaping. With no tokens the text is returned unchanged.
func Highlight(text string, tokens []string) string {
	return DefaultHighlighter.Highlight(text, tokens)
}

// Highlight renders text with every merged token span wrapped in markers.
func (h Highlighter) Highlight(text string, tokens []string) string {
	if len(tokens) == 0 {
		return h.escape(text)
	}
	return h.Render(Mark(text, tokens))
}

// Render writes the segments of m, wrapping the marked ones.
func (h Highlighter) Render(m Marked) string {
	var b strings.Builder
	b.Grow(len(m.Text) + len(m.Spans)*(len(h.Open)+len(h.Close)))

	for _, seg := range m.Segments() {
		if seg.Marked {
			b.WriteString(h.Open)
			b.WriteString(h.escape(seg.Text))
			b.WriteString(h.Close)
			continue
		}
		b.WriteString(h.escape(seg.Text))
	}
	return b.String()
}

func (h Highlighter) escape(s string) string {
	if h.Escape == nil {
		return s
	}
	return h.Escape(s)
}
