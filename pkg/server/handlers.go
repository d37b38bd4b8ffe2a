package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/search"
)

const maxVisibilityBody = 1 << 20

// SearchResponse is the body of GET /api/search. Text fields of episodes and
// cues are HTML with matches wrapped in <mark>.
type SearchResponse struct {
	Query    string          `json:"query"`
	Tokens   []string        `json:"tokens"`
	Total    int             `json:"total"`
	Episodes []EpisodeResult `json:"episodes"`
}

type EpisodeResult struct {
	ID            string         `json:"id"`
	Channel       string         `json:"channel"`
	AirDate       string         `json:"air_date"`
	StartTime     string         `json:"start_time,omitempty"`
	URL           string         `json:"url,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	HasTranscript bool           `json:"has_transcript"`
	Windows       []WindowResult `json:"windows,omitempty"`
}

type WindowResult struct {
	Cues []CueResult `json:"cues"`
}

type CueResult struct {
	Index int    `json:"index"`
	Time  string `json:"time,omitempty"`
	Text  string `json:"text"`
	Match bool   `json:"match"`
}

// VisibilityRequest is the body of POST /api/visibility: the query the client
// is displaying and the IDs of the episode cards currently on screen.
type VisibilityRequest struct {
	Query   string   `json:"query"`
	Visible []string `json:"visible"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	query := q.Get("q")

	subtitles, err := boolParam(q.Get("subtitles"), s.subtitles)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid subtitles parameter")
		return
	}
	full := make(map[string]bool)
	for _, id := range listParam(q["full"]) {
		full[id] = true
	}

	result := search.Search(query, s.snapshot(), search.Options{
		Subtitles: subtitles,
		Selected:  listParam(q["selected"]),
	})

	resp := SearchResponse{
		Query:    query,
		Tokens:   result.Tokens,
		Total:    len(result.Items),
		Episodes: make([]EpisodeResult, 0, len(result.Items)),
	}
	for i := range result.Items {
		ep := &result.Items[i]
		resp.Episodes = append(resp.Episodes, s.renderEpisode(ep, result.Tokens, subtitles, full[ep.ID]))
	}

	s.logger.Debug("search served", "query", query, "tokens", len(result.Tokens), "results", resp.Total)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) renderEpisode(ep *domain.Episode, tokens []string, subtitles, full bool) EpisodeResult {
	out := EpisodeResult{
		ID:            ep.ID,
		Channel:       ep.Channel,
		AirDate:       ep.AirDate,
		StartTime:     ep.StartTime,
		URL:           ep.URL,
		Title:         s.highlight(ep.Title, tokens),
		Description:   s.highlight(ep.Description, tokens),
		HasTranscript: ep.HasTranscript(),
	}
	if !subtitles {
		return out
	}

	for _, win := range search.GroupCues(ep.Cues, tokens, full) {
		cues := win.Context
		if !full {
			cues = win.Cues()
		}

		wr := WindowResult{Cues: make([]CueResult, 0, len(cues))}
		for _, c := range cues {
			wr.Cues = append(wr.Cues, CueResult{
				Index: c.Index,
				Time:  c.Time,
				Text:  s.highlight(c.Text, tokens),
				Match: win.IsMatch(c.Index),
			})
		}
		out.Windows = append(out.Windows, wr)
	}
	return out
}

func (s *Server) highlight(text string, tokens []string) string {
	return s.highlighter.Render(s.cache.Mark(text, tokens))
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req VisibilityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVisibilityBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	s.tokens = search.Tokenize(req.Query)
	s.mu.Unlock()

	s.viewport.Replace(req.Visible)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	hits, misses := s.cache.Stats()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"episodes":     len(s.snapshot()),
		"visible":      len(s.viewport.Visible()),
		"cache_size":   s.cache.Len(),
		"cache_hits":   hits,
		"cache_misses": misses,
	})
}

func boolParam(raw string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseBool(raw)
}

// listParam accepts repeated parameters and comma-separated values.
func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
