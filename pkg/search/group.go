package search

import (
	"sort"

	"broadcast-search/pkg/domain"
)

// ContextSize is the number of cues shown on each side of a match. Two
// matches at most 2*ContextSize indices apart end up in the same window.
const ContextSize = 5

// Window is one transcript excerpt.
//
// In snippet mode Matches holds the cues containing a token and Context the
// surrounding cues that do not; the two never share a cue. In full-transcript
// mode Context is the whole transcript and Matches tells the renderer which
// of those cues to emphasize.
type Window struct {
	Matches []domain.Cue `json:"matches"`
	Context []domain.Cue `json:"context"`
}

// Cues returns the cues of a snippet window in index order.
func (w Window) Cues() []domain.Cue {
	all := make([]domain.Cue, 0, len(w.Matches)+len(w.Context))
	all = append(all, w.Matches...)
	all = append(all, w.Context...)
	sort.Slice(all, func(i, j int) bool { return all[i].Index < all[j].Index })
	return all
}

// IsMatch reports whether the cue with the given index is one of the matches.
func (w Window) IsMatch(index int) bool {
	for _, c := range w.Matches {
		if c.Index == index {
			return true
		}
	}
	return false
}

// GroupCues groups the cues that contain any token into context windows.
//
// With no tokens there is nothing to show and no windows are returned. With
// showFullTranscript a single window covering every cue is returned.
// Otherwise matching cue indices are clustered: an index joins the current
// group when it is within 2*ContextSize of the group's last index. Each group
// becomes a window whose context spans ContextSize cues before the first and
// after the last match.
func GroupCues(cues []domain.Cue, tokens []string, showFullTranscript bool) []Window {
	if len(tokens) == 0 || len(cues) == 0 {
		return nil
	}

	needles := foldTokens(tokens)
	if len(needles) == 0 {
		return nil
	}

	cues = sortedByIndex(cues)

	var matched []domain.Cue
	isMatch := make(map[int]bool)
	for _, c := range cues {
		if containsAny(c.Text, needles) {
			matched = append(matched, c)
			isMatch[c.Index] = true
		}
	}

	if showFullTranscript {
		return []Window{{Matches: matched, Context: cues}}
	}
	if len(matched) == 0 {
		return nil
	}

	var windows []Window
	start := 0
	for i := 1; i <= len(matched); i++ {
		if i < len(matched) && matched[i].Index-matched[i-1].Index <= 2*ContextSize {
			continue
		}
		windows = append(windows, buildWindow(cues, matched[start:i], isMatch))
		start = i
	}
	return windows
}

func buildWindow(cues, group []domain.Cue, isMatch map[int]bool) Window {
	lo := group[0].Index - ContextSize
	hi := group[len(group)-1].Index + ContextSize

	w := Window{Matches: append([]domain.Cue(nil), group...)}

	first := sort.Search(len(cues), func(i int) bool { return cues[i].Index >= lo })
	for _, c := range cues[first:] {
		if c.Index > hi {
			break
		}
		if !isMatch[c.Index] {
			w.Context = append(w.Context, c)
		}
	}
	return w
}

// sortedByIndex returns cues ordered by Index, copying only when needed.
func sortedByIndex(cues []domain.Cue) []domain.Cue {
	if sort.SliceIsSorted(cues, func(i, j int) bool { return cues[i].Index < cues[j].Index }) {
		return cues
	}
	sorted := append([]domain.Cue(nil), cues...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	return sorted
}
