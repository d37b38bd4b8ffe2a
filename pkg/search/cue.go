package search

import (
	"strings"

	"broadcast-search/pkg/domain"
)

// ParseCues turns a raw caption track into its ordered cues.
//
// The track is split into blocks on blank lines. The first block is the
// format header and is always discarded. Every other block must have at least
// three lines: an identifier (ignored), the time label (kept verbatim) and one
// or more text lines, which are joined with single spaces. Shorter blocks are
// skipped. Indices are assigned densely over the kept cues, starting at 0.
func ParseCues(raw string) []domain.Cue {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	blocks := splitBlocks(raw)
	if len(blocks) <= 1 {
		return nil
	}

	cues := make([]domain.Cue, 0, len(blocks)-1)
	for _, lines := range blocks[1:] {
		if len(lines) < 3 {
			continue
		}
		cues = append(cues, domain.Cue{
			Index: len(cues),
			Time:  lines[1],
			Text:  strings.Join(lines[2:], " "),
		})
	}
	return cues
}

// ParseTranscript picks the cue parser for a raw transcript: caption tracks
// (a WEBVTT header or "-->" time ranges) go through ParseCues, anything else is
// treated as plain text.
func ParseTranscript(raw string) []domain.Cue {
	if isCaptionTrack(raw) {
		return ParseCues(raw)
	}
	return CuesFromText(raw)
}

func isCaptionTrack(raw string) bool {
	trimmed := strings.TrimLeft(raw, "\ufeff \t\r\n")
	return strings.HasPrefix(trimmed, "WEBVTT") || strings.Contains(raw, "-->")
}

// CuesFromText builds untimed cues from a plain-text transcript, one cue per
// non-empty line with its whitespace collapsed. It is used for transcripts
// published as TXT or PDF documents.
func CuesFromText(text string) []domain.Cue {
	var cues []domain.Cue
	for _, lines := range splitBlocks(text) {
		for _, line := range lines {
			line = strings.Join(strings.Fields(line), " ")
			if line == "" {
				continue
			}
			cues = append(cues, domain.Cue{Index: len(cues), Text: line})
		}
	}
	return cues
}

// splitBlocks groups consecutive non-blank lines. Runs of blank lines count as
// a single separator.
func splitBlocks(raw string) [][]string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var (
		blocks  [][]string
		current []string
	)
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}
