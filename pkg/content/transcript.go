package content

import (
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	errEmptyHTML         = errors.New("empty HTML content")
	errNoTranscriptLink  = errors.New("no transcript link found in HTML")
	errFailedToParseHTML = errors.New("failed to parse HTML for transcript link")
)

// TranscriptKind is the document type of a downloaded transcript.
type TranscriptKind string

const (
	KindUnknown TranscriptKind = ""
	KindCaption TranscriptKind = "vtt"
	KindText    TranscriptKind = "txt"
	KindPDF     TranscriptKind = "pdf"
)

// FindTranscriptURL attempts to locate a subtitle or transcript link in the
// HTML content of an episode page.
//
// Candidates are ranked by how much they look like a transcript link:
//  1. href looks like a transcript document and the anchor text mentions a
//     transcript, subtitles or captions
//  2. href looks like a transcript document
//  3. anchor text mentions a transcript, subtitles or captions
//
// Within a rank, caption tracks (.vtt) win over plain documents. A <track>
// element with kind="subtitles" or kind="captions" ranks first.
//
// The caller is responsible for resolving relative URLs against the page URL.
func FindTranscriptURL(html string) (string, error) {
	html = strings.TrimSpace(html)
	if html == "" {
		return "", errEmptyHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.Join(errFailedToParseHTML, err)
	}

	var track string
	doc.Find("track[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		kind := strings.ToLower(sel.AttrOr("kind", "subtitles"))
		if kind != "subtitles" && kind != "captions" {
			return true
		}
		track = strings.TrimSpace(sel.AttrOr("src", ""))
		return track == ""
	})
	if track != "" {
		return track, nil
	}

	var (
		highPriority   []string // text mentions transcript AND href is document-like
		mediumPriority []string // href is document-like
		lowPriority    []string // text mentions transcript
	)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}

		kind := TranscriptKindFromURL(href)
		docLike := kind != KindUnknown
		textMentions := anchorTextMentionsTranscript(sel.Text())

		switch {
		case docLike && textMentions:
			highPriority = appendByKind(highPriority, href, kind)
		case docLike:
			mediumPriority = appendByKind(mediumPriority, href, kind)
		case textMentions:
			lowPriority = append(lowPriority, href)
		}
	})

	for _, candidates := range [][]string{highPriority, mediumPriority, lowPriority} {
		if len(candidates) > 0 {
			return candidates[0], nil
		}
	}

	return "", errNoTranscriptLink
}

// appendByKind keeps caption tracks ahead of other documents.
func appendByKind(list []string, href string, kind TranscriptKind) []string {
	if kind != KindCaption {
		return append(list, href)
	}
	for i, existing := range list {
		if TranscriptKindFromURL(existing) != KindCaption {
			return append(list[:i], append([]string{href}, list[i:]...)...)
		}
	}
	return append(list, href)
}

// TranscriptKindFromURL classifies a transcript URL by its path extension.
func TranscriptKindFromURL(href string) TranscriptKind {
	p := href
	if parsed, err := url.Parse(href); err == nil {
		p = parsed.Path
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".vtt":
		return KindCaption
	case ".txt":
		return KindText
	case ".pdf":
		return KindPDF
	default:
		return KindUnknown
	}
}

// TranscriptKindFromContentType classifies a response by its Content-Type.
func TranscriptKindFromContentType(contentType string) TranscriptKind {
	lct := strings.ToLower(contentType)
	switch {
	case strings.Contains(lct, "text/vtt"):
		return KindCaption
	case strings.Contains(lct, "text/plain"):
		return KindText
	case strings.Contains(lct, "application/pdf"):
		return KindPDF
	default:
		return KindUnknown
	}
}

// anchorTextMentionsTranscript returns true if the anchor text clearly refers
// to a transcript or subtitle link.
func anchorTextMentionsTranscript(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}
	for _, word := range []string{"transcript", "subtitle", "caption"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
