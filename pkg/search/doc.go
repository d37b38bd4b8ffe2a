// Package search implements query matching over broadcast episodes: query
// tokenizing, case-insensitive span finding, span merging, highlighting and
// grouping of matching transcript cues into context windows.
//
// Every function in this package is pure. Filtering (Search) and rendering
// (Highlighter, GroupCues) share one case-folding routine, so an episode is
// reported as a match exactly when at least one highlight span exists for it.
package search
