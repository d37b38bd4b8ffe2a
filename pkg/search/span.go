package search

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Span is a half-open byte range [Start, End) of one token occurrence.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// FindSpans returns every case-insensitive occurrence of token in text, in
// ascending order. Matching is a literal substring search, so "cat" matches
// inside "category". The scan resumes after each match, so the spans of a
// single token never overlap. An empty token, or one that is not valid
// UTF-8, yields no spans.
func FindSpans(text, token string) []Span {
	if token == "" || text == "" {
		return nil
	}
	return findFolded(fold(text), foldString(token))
}

func findFolded(f folded, needle string) []Span {
	if needle == "" || !utf8.ValidString(needle) {
		return nil
	}

	var spans []Span
	pos := 0
	for pos+len(needle) <= len(f.lower) {
		idx := strings.Index(f.lower[pos:], needle)
		if idx < 0 {
			break
		}
		start := pos + idx
		end := start + len(needle)
		if s, e := f.original(start), f.original(end); s < e {
			spans = append(spans, Span{Start: s, End: e})
		}
		pos = end
	}
	return spans
}

// FindAllSpans collects the spans of every token over text, unmerged.
func FindAllSpans(text string, tokens []string) []Span {
	if text == "" || len(tokens) == 0 {
		return nil
	}

	f := fold(text)
	var spans []Span
	for _, token := range tokens {
		spans = append(spans, findFolded(f, foldString(token))...)
	}
	return spans
}

// MergeSpans collapses possibly overlapping spans into the minimal ordered set
// of disjoint spans covering the same bytes. Spans that touch (a.End ==
// b.Start) are merged as well. The input slice is not modified and the result
// does not depend on its order.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// containsAny reports whether any of the folded needles occurs in text.
func containsAny(text string, needles []string) bool {
	if text == "" {
		return false
	}
	lower := fold(text).lower
	for _, n := range needles {
		if n != "" && strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// Contains reports whether any token occurs in text, using the same matching
// rules as FindSpans.
func Contains(text string, tokens []string) bool {
	return containsAny(text, foldTokens(tokens))
}

func foldTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = foldString(t); t != "" && utf8.ValidString(t) {
			out = append(out, t)
		}
	}
	return out
}
