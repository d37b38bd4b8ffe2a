package search

import (
	"reflect"
	"testing"

	"broadcast-search/pkg/domain"
)

func TestParseCues(t *testing.T) {
	raw := "WEBVTT\n" +
		"Kind: captions\n" +
		"\n" +
		"1\n" +
		"00:00:01.000 --> 00:00:03.000\n" +
		"Good evening\n" +
		"and welcome.\n" +
		"\n" +
		"2\n" +
		"00:00:03.500 --> 00:00:05.000\n" +
		"\n" +
		"3\n" +
		"00:00:05.000 --> 00:00:07.000\n" +
		"Tonight's headlines.\n"

	got := ParseCues(raw)
	want := []domain.Cue{
		{Index: 0, Time: "00:00:01.000 --> 00:00:03.000", Text: "Good evening and welcome."},
		{Index: 1, Time: "00:00:05.000 --> 00:00:07.000", Text: "Tonight's headlines."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseCues() = %#v\nwant %#v", got, want)
	}
}

func TestParseCues_CRLFAndExtraBlankLines(t *testing.T) {
	raw := "WEBVTT\r\n\r\n\r\n1\r\n00:01\r\nfirst\r\n\r\n\r\n2\r\n00:02\r\nsecond\r\n"

	got := ParseCues(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 cues, got %d: %#v", len(got), got)
	}
	if got[1].Index != 1 || got[1].Time != "00:02" || got[1].Text != "second" {
		t.Fatalf("unexpected second cue: %#v", got[1])
	}
}

// TestParseCues_HeaderAlwaysDiscarded verifies the first block is dropped even
// when it looks like a cue.
func TestParseCues_HeaderAlwaysDiscarded(t *testing.T) {
	raw := "1\n00:01\nnot a header\n\n2\n00:02\nkept"
	got := ParseCues(raw)
	if len(got) != 1 || got[0].Text != "kept" || got[0].Index != 0 {
		t.Fatalf("unexpected cues: %#v", got)
	}
}

func TestParseCues_Empty(t *testing.T) {
	for _, raw := range []string{"", "   \n\n ", "WEBVTT"} {
		if got := ParseCues(raw); len(got) != 0 {
			t.Errorf("ParseCues(%q) = %#v, want no cues", raw, got)
		}
	}
}

func TestCuesFromText(t *testing.T) {
	text := "First line\n  second\tline \n\n\nThird   line.\r\n"
	got := CuesFromText(text)
	want := []domain.Cue{
		{Index: 0, Text: "First line"},
		{Index: 1, Text: "second line"},
		{Index: 2, Text: "Third line."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CuesFromText() = %#v, want %#v", got, want)
	}
}

func TestParseTranscript(t *testing.T) {
	vtt := "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000\nHello there\n"
	cues := ParseTranscript(vtt)
	if len(cues) != 1 || cues[0].Time != "00:00:01.000 --> 00:00:02.000" || cues[0].Text != "Hello there" {
		t.Fatalf("caption track parsed as %+v", cues)
	}

	pages := "line one about weather\nline two about sport\nline three about news\n\n" +
		"line four\nline five\nline six"
	cues = ParseTranscript(pages)
	if len(cues) != 6 {
		t.Fatalf("expected one cue per line, got %d: %+v", len(cues), cues)
	}
	if cues[0].Time != "" || cues[0].Text != "line one about weather" || cues[5].Index != 5 || cues[5].Text != "line six" {
		t.Fatalf("plain text parsed as %+v", cues)
	}
}
