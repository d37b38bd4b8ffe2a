package content

import "testing"

// TestFindTranscriptURL_Track verifies that a subtitles <track> element wins
// over anchor links.
func TestFindTranscriptURL_Track(t *testing.T) {
	html := `
<video src="/media/ep1.mp4">
  <track kind="chapters" src="/media/ep1-chapters.vtt">
  <track kind="subtitles" srclang="en" src="/media/ep1.vtt">
</video>
<a href="/docs/ep1.pdf">Read the transcript</a>`

	got, err := FindTranscriptURL(html)
	if err != nil {
		t.Fatalf("FindTranscriptURL returned error: %v", err)
	}
	if got != "/media/ep1.vtt" {
		t.Fatalf("FindTranscriptURL = %q, want %q", got, "/media/ep1.vtt")
	}
}

func TestFindTranscriptURL_PrefersCaptionTrack(t *testing.T) {
	html := `
<p><a href="https://example.com/ep1.pdf">Download the transcript</a>
<a href="https://example.com/ep1.vtt">Subtitles (WebVTT)</a></p>`

	got, err := FindTranscriptURL(html)
	if err != nil {
		t.Fatalf("FindTranscriptURL returned error: %v", err)
	}
	if got != "https://example.com/ep1.vtt" {
		t.Fatalf("FindTranscriptURL = %q", got)
	}
}

func TestFindTranscriptURL_TextOnly(t *testing.T) {
	html := `<a href="/about">About</a><a href="/ep1/transcript">Full transcript</a>`

	got, err := FindTranscriptURL(html)
	if err != nil {
		t.Fatalf("FindTranscriptURL returned error: %v", err)
	}
	if got != "/ep1/transcript" {
		t.Fatalf("FindTranscriptURL = %q", got)
	}
}

func TestFindTranscriptURL_None(t *testing.T) {
	if _, err := FindTranscriptURL(`<a href="/about">About</a>`); err == nil {
		t.Fatal("expected error when no transcript link exists")
	}
	if _, err := FindTranscriptURL("   "); err == nil {
		t.Fatal("expected error for empty HTML")
	}
}

func TestTranscriptKind(t *testing.T) {
	urlCases := map[string]TranscriptKind{
		"https://example.com/a.VTT?x=1": KindCaption,
		"/b.txt":                        KindText,
		"c.pdf":                         KindPDF,
		"/d.html":                       KindUnknown,
	}
	for in, want := range urlCases {
		if got := TranscriptKindFromURL(in); got != want {
			t.Errorf("TranscriptKindFromURL(%q) = %q, want %q", in, got, want)
		}
	}

	if got := TranscriptKindFromContentType("text/vtt; charset=utf-8"); got != KindCaption {
		t.Errorf("content type vtt = %q", got)
	}
	if got := TranscriptKindFromContentType("application/pdf"); got != KindPDF {
		t.Errorf("content type pdf = %q", got)
	}
}
