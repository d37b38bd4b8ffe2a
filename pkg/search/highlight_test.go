package search

import (
	"strings"
	"testing"
)

func TestHighlight(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		tokens []string
		want   string
	}{
		{name: "no tokens", text: "Late <b>news</b>", tokens: nil, want: "Late <b>news</b>"},
		{name: "single", text: "The weather today", tokens: []string{"weather"}, want: "The <mark>weather</mark> today"},
		{name: "keeps original case", text: "WEATHER report", tokens: []string{"weather"}, want: "<mark>WEATHER</mark> report"},
		{name: "overlapping tokens", text: "category", tokens: []string{"cat", "ateg"}, want: "<mark>categ</mark>ory"},
		{name: "touching tokens", text: "football", tokens: []string{"foot", "ball"}, want: "<mark>football</mark>"},
		{name: "separate", text: "cat and dog", tokens: []string{"dog", "cat"}, want: "<mark>cat</mark> and <mark>dog</mark>"},
		{name: "no match", text: "nothing here", tokens: []string{"xyz"}, want: "nothing here"},
		{name: "no escaping by default", text: "<i>cat</i>", tokens: []string{"cat"}, want: "<i><mark>cat</mark></i>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Highlight(tt.text, tt.tokens); got != tt.want {
				t.Fatalf("Highlight(%q, %v) = %q, want %q", tt.text, tt.tokens, got, tt.want)
			}
		})
	}
}

func TestHTMLHighlighter_Escapes(t *testing.T) {
	got := HTMLHighlighter.Highlight(`<script>cat & "dog"</script>`, []string{"cat"})
	want := `&lt;script&gt;<mark>cat</mark> &amp; &#34;dog&#34;&lt;/script&gt;`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	if got := HTMLHighlighter.Highlight("a<b", nil); got != "a&lt;b" {
		t.Fatalf("no-token text must still be escaped, got %q", got)
	}
}

func TestHighlighter_CustomMarkers(t *testing.T) {
	h := Highlighter{Open: "[", Close: "]"}
	if got := h.Highlight("Evening News", []string{"news"}); got != "Evening [News]" {
		t.Fatalf("got %q", got)
	}
}

// TestHighlight_Partition verifies that removing the markers from the output
// always reconstructs the input exactly.
func TestHighlight_Partition(t *testing.T) {
	texts := []string{
		"",
		"aaaa",
		"The cathedral category concatenates.",
		"Ünïcödé ȺȺȺ text with ÉTÉ and été",
		"ends with cat",
		"cat starts it",
	}
	tokenSets := [][]string{
		{"cat"},
		{"a", "aa"},
		{"ȺȺ", "été", "t"},
		{"xyz"},
		{"the", "cat", "ate", "s"},
	}

	h := Highlighter{Open: "\x01", Close: "\x02"}
	for _, text := range texts {
		for _, tokens := range tokenSets {
			out := h.Highlight(text, tokens)
			stripped := strings.NewReplacer("\x01", "", "\x02", "").Replace(out)
			if stripped != text {
				t.Fatalf("Highlight(%q, %v) stripped to %q", text, tokens, stripped)
			}
			if strings.Count(out, "\x01") != strings.Count(out, "\x02") {
				t.Fatalf("unbalanced markers in %q", out)
			}
		}
	}
}

func TestMarked_Segments(t *testing.T) {
	m := Mark("cat and dog", []string{"cat", "dog"})
	segs := m.Segments()
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %#v", segs)
	}
	if !segs[0].Marked || segs[0].Text != "cat" {
		t.Errorf("unexpected first segment: %#v", segs[0])
	}
	if segs[1].Marked || segs[1].Text != " and " {
		t.Errorf("unexpected second segment: %#v", segs[1])
	}
	if !segs[2].Marked || segs[2].Text != "dog" {
		t.Errorf("unexpected third segment: %#v", segs[2])
	}
}
