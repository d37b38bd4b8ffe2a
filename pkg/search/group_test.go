package search

import (
	"fmt"
	"testing"

	"broadcast-search/pkg/domain"
)

// makeCues builds n cues whose text is "line i", with the given indices
// replaced by text containing "needle".
func makeCues(n int, matches ...int) []domain.Cue {
	hit := make(map[int]bool, len(matches))
	for _, m := range matches {
		hit[m] = true
	}
	cues := make([]domain.Cue, n)
	for i := range cues {
		text := fmt.Sprintf("line %d", i)
		if hit[i] {
			text = fmt.Sprintf("the needle at %d", i)
		}
		cues[i] = domain.Cue{Index: i, Time: fmt.Sprintf("00:00:%02d", i), Text: text}
	}
	return cues
}

func indices(cues []domain.Cue) []int {
	out := make([]int, len(cues))
	for i, c := range cues {
		out[i] = c.Index
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func rangeInts(lo, hi int, skip ...int) []int {
	s := make(map[int]bool)
	for _, v := range skip {
		s[v] = true
	}
	var out []int
	for i := lo; i <= hi; i++ {
		if !s[i] {
			out = append(out, i)
		}
	}
	return out
}

func TestGroupCues_SingleMatch(t *testing.T) {
	cues := makeCues(21, 10)

	windows := GroupCues(cues, []string{"needle"}, false)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}

	w := windows[0]
	if got := indices(w.Matches); !equalInts(got, []int{10}) {
		t.Errorf("matches = %v, want [10]", got)
	}
	if got, want := indices(w.Context), rangeInts(5, 15, 10); !equalInts(got, want) {
		t.Errorf("context = %v, want %v", got, want)
	}
}

// TestGroupCues_Clustering covers the chaining rule: 18 is 8 away from 10 and
// joins its window, 30 is 12 away from 18 and opens a new one.
func TestGroupCues_Clustering(t *testing.T) {
	cues := makeCues(40, 10, 18, 30)

	windows := GroupCues(cues, []string{"needle"}, false)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}

	if got := indices(windows[0].Matches); !equalInts(got, []int{10, 18}) {
		t.Errorf("first window matches = %v", got)
	}
	if got, want := indices(windows[0].Context), rangeInts(5, 23, 10, 18); !equalInts(got, want) {
		t.Errorf("first window context = %v, want %v", got, want)
	}

	if got := indices(windows[1].Matches); !equalInts(got, []int{30}) {
		t.Errorf("second window matches = %v", got)
	}
	if got, want := indices(windows[1].Context), rangeInts(25, 35, 30); !equalInts(got, want) {
		t.Errorf("second window context = %v, want %v", got, want)
	}
}

func TestGroupCues_ThresholdBoundary(t *testing.T) {
	// Exactly 2*ContextSize apart: same window.
	if got := GroupCues(makeCues(40, 5, 15), []string{"needle"}, false); len(got) != 1 {
		t.Errorf("gap of %d: expected 1 window, got %d", 2*ContextSize, len(got))
	}
	// One more: two windows.
	if got := GroupCues(makeCues(40, 5, 16), []string{"needle"}, false); len(got) != 2 {
		t.Errorf("gap of %d: expected 2 windows, got %d", 2*ContextSize+1, len(got))
	}
}

// TestGroupCues_Chain verifies single linkage: the first and last matches are
// far apart but every consecutive pair is within the threshold.
func TestGroupCues_Chain(t *testing.T) {
	cues := makeCues(60, 2, 12, 22, 32, 42)
	windows := GroupCues(cues, []string{"needle"}, false)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if got, want := indices(windows[0].Context), rangeInts(0, 47, 2, 12, 22, 32, 42); !equalInts(got, want) {
		t.Errorf("context = %v, want %v", got, want)
	}
}

func TestGroupCues_ClampsAtEdges(t *testing.T) {
	cues := makeCues(8, 1, 7)
	windows := GroupCues(cues, []string{"needle"}, false)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if got, want := indices(windows[0].Context), []int{0, 2, 3, 4, 5, 6}; !equalInts(got, want) {
		t.Errorf("context = %v, want %v", got, want)
	}
}

func TestGroupCues_Containment(t *testing.T) {
	matches := []int{0, 3, 14, 15, 27, 40, 41, 42, 55, 99}
	cues := makeCues(100, matches...)
	windows := GroupCues(cues, []string{"NEEDLE", "missing"}, false)

	seen := make(map[int]int)
	for _, w := range windows {
		inWindow := make(map[int]bool)
		for _, c := range w.Matches {
			seen[c.Index]++
			inWindow[c.Index] = true
		}
		for _, c := range w.Context {
			if inWindow[c.Index] {
				t.Errorf("cue %d is both a match and context", c.Index)
			}
		}
	}
	for _, m := range matches {
		if seen[m] != 1 {
			t.Errorf("match %d appears in %d windows", m, seen[m])
		}
	}
	if len(seen) != len(matches) {
		t.Errorf("windows contain %d matches, want %d", len(seen), len(matches))
	}
}

func TestGroupCues_FullTranscript(t *testing.T) {
	cues := makeCues(30, 4, 20)

	windows := GroupCues(cues, []string{"needle"}, true)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if len(windows[0].Context) != len(cues) {
		t.Errorf("context has %d cues, want %d", len(windows[0].Context), len(cues))
	}
	if got := indices(windows[0].Matches); !equalInts(got, []int{4, 20}) {
		t.Errorf("matches = %v", got)
	}
	if !windows[0].IsMatch(20) || windows[0].IsMatch(21) {
		t.Error("IsMatch disagrees with Matches")
	}

	// Full mode returns the backdrop even without matches.
	windows = GroupCues(cues, []string{"absent"}, true)
	if len(windows) != 1 || len(windows[0].Matches) != 0 || len(windows[0].Context) != len(cues) {
		t.Errorf("unexpected full-transcript window without matches: %+v", windows)
	}
}

func TestGroupCues_NoTokensOrMatches(t *testing.T) {
	cues := makeCues(10, 3)
	if got := GroupCues(cues, nil, false); got != nil {
		t.Errorf("no tokens: got %v", got)
	}
	if got := GroupCues(cues, []string{}, true); got != nil {
		t.Errorf("no tokens, full transcript: got %v", got)
	}
	if got := GroupCues(cues, []string{"absent"}, false); got != nil {
		t.Errorf("no matches: got %v", got)
	}
	if got := GroupCues(nil, []string{"needle"}, false); got != nil {
		t.Errorf("no cues: got %v", got)
	}
}

// TestGroupCues_SparseIndices uses a transcript with gaps; the context only
// contains cues that exist.
func TestGroupCues_SparseIndices(t *testing.T) {
	all := makeCues(30, 12)
	var cues []domain.Cue
	for _, c := range all {
		if c.Index%2 == 0 {
			cues = append(cues, c)
		}
	}
	// Reverse to check sorting.
	for i, j := 0, len(cues)-1; i < j; i, j = i+1, j-1 {
		cues[i], cues[j] = cues[j], cues[i]
	}

	windows := GroupCues(cues, []string{"needle"}, false)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if got := indices(windows[0].Context); !equalInts(got, []int{8, 10, 14, 16}) {
		t.Errorf("context = %v", got)
	}
	if got := indices(windows[0].Cues()); !equalInts(got, []int{8, 10, 12, 14, 16}) {
		t.Errorf("cues = %v", got)
	}
}
