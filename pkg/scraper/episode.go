package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"broadcast-search/pkg/content"
	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/search"
)

var (
	ErrUnsupportedTranscript = errors.New("unsupported transcript type")
	ErrEmptyTranscript       = errors.New("transcript is empty")
)

// enrichEpisode fetches the episode page, fills a missing description and
// downloads the transcript when the page links one. A missing or unreadable
// transcript is not an error.
func (s *Service) enrichEpisode(ctx context.Context, ep *domain.Episode) error {
	page, _, err := s.fetcher.Fetch(ctx, ep.URL)
	if err != nil {
		return fmt.Errorf("fetch episode page: %w", err)
	}
	html := string(page)

	if ep.Description == "" {
		if desc, err := content.ExtractDescription(html); err == nil {
			ep.Description = desc
		}
	}

	href, err := content.FindTranscriptURL(html)
	if err != nil {
		return nil
	}
	transcriptURL, err := resolveAgainst(ep.URL, href)
	if err != nil {
		s.logger.Debug("bad transcript link", "url", ep.URL, "href", href, "error", err)
		return nil
	}

	raw, err := s.downloadTranscript(ctx, transcriptURL)
	if err != nil {
		s.logger.Debug("transcript download failed", "url", transcriptURL, "error", err)
		return nil
	}

	ep.TranscriptURL = transcriptURL
	ep.Transcript = raw
	ep.Cues = search.ParseTranscript(raw)
	return ep.Normalize()
}

// downloadTranscript returns the transcript text, decoding PDF documents.
func (s *Service) downloadTranscript(ctx context.Context, transcriptURL string) (string, error) {
	body, contentType, err := s.fetcher.Fetch(ctx, transcriptURL)
	if err != nil {
		return "", err
	}

	kind := content.TranscriptKindFromURL(transcriptURL)
	if kind == content.KindUnknown {
		kind = content.TranscriptKindFromContentType(contentType)
	}

	var text string
	switch kind {
	case content.KindCaption, content.KindText:
		text = string(body)
	case content.KindPDF:
		text, err = content.ExtractTextFromPDF(body)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedTranscript, contentType)
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

func resolveAgainst(baseURL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyEpisodeURL
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}
