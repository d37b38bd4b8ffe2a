package search

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"broadcast-search/pkg/domain"
)

// MinQueryLength is the shortest trimmed query, in characters, that produces
// tokens. Shorter queries disable text filtering.
const MinQueryLength = 3

// Options controls which episodes and fields Search looks at.
type Options struct {
	// Subtitles enables matching against transcript cues.
	Subtitles bool

	// Selected restricts the candidates to the given episode IDs. It is
	// applied before text filtering and is the only filter when the query
	// yields no tokens. Empty means every episode is a candidate.
	Selected []string
}

// Result is the outcome of a search. Tokens are the exact tokens used for
// matching and must be reused for highlighting and cue grouping.
type Result struct {
	Items  []domain.Episode `json:"items"`
	Tokens []string         `json:"tokens"`
}

// Tokenize NFC-normalizes and lowercases the query and splits it on
// whitespace. Duplicate tokens and tokens that are not valid UTF-8 are
// dropped. A trimmed query shorter than MinQueryLength characters yields no
// tokens.
func Tokenize(query string) []string {
	query = norm.NFC.String(strings.TrimSpace(query))
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []string{}
	}

	fields := strings.Fields(foldString(query))
	tokens := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f] || !utf8.ValidString(f) {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
	}
	return tokens
}

// Search returns the episodes matching any token of the query, in the order
// they were given. An episode matches when a token occurs in its title, its
// description or, with Options.Subtitles, any of its cues.
//
// A query without tokens does not filter at all: every candidate is returned.
func Search(query string, items []domain.Episode, opts Options) Result {
	tokens := Tokenize(query)
	candidates := selectEpisodes(items, opts.Selected)

	if len(tokens) == 0 {
		return Result{Items: candidates, Tokens: tokens}
	}

	matched := make([]domain.Episode, 0)
	for _, ep := range candidates {
		if episodeMatches(&ep, tokens, opts.Subtitles) {
			matched = append(matched, ep)
		}
	}
	return Result{Items: matched, Tokens: tokens}
}

// MatchesEpisode reports whether the episode matches any of the tokens, with
// the same rules as Search. No tokens match every episode.
func MatchesEpisode(ep *domain.Episode, tokens []string, subtitles bool) bool {
	if len(tokens) == 0 {
		return true
	}
	return episodeMatches(ep, foldTokens(tokens), subtitles)
}

func episodeMatches(ep *domain.Episode, tokens []string, subtitles bool) bool {
	if containsAny(ep.Title, tokens) || containsAny(ep.Description, tokens) {
		return true
	}
	if !subtitles {
		return false
	}
	for _, c := range ep.Cues {
		if containsAny(c.Text, tokens) {
			return true
		}
	}
	return false
}

// selectEpisodes copies the episodes whose IDs are selected, or all of them
// when nothing is selected.
func selectEpisodes(items []domain.Episode, selected []string) []domain.Episode {
	if len(selected) == 0 {
		return append(make([]domain.Episode, 0, len(items)), items...)
	}

	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}

	out := make([]domain.Episode, 0, len(selected))
	for _, ep := range items {
		if want[ep.ID] {
			out = append(out, ep)
		}
	}
	return out
}
