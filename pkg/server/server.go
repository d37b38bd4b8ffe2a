// Package server exposes episode search over HTTP.
//
//	GET  /api/search?q=&subtitles=&full=<id>&selected=<id>
//	     full and selected take episode IDs, repeated or comma-separated.
//	POST /api/visibility
//	GET  /healthz
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/logging"
	"broadcast-search/pkg/search"
	"broadcast-search/pkg/viewport"
)

// Config holds the server settings.
type Config struct {
	Address string

	// Subtitles is used when a request has no subtitles parameter.
	Subtitles bool

	CacheSize int
	Logger    *slog.Logger
}

// Server answers search requests over an in-memory episode list.
type Server struct {
	address   string
	subtitles bool
	logger    *slog.Logger

	cache       *search.Cache
	highlighter search.Highlighter
	viewport    *viewport.Registry

	mu       sync.RWMutex
	episodes []domain.Episode
	byID     map[string]int
	cancels  []func()
	tokens   []string // tokens of the latest visibility report

	httpServer *http.Server
}

// New creates a server over episodes.
func New(cfg Config, episodes []domain.Episode) *Server {
	s := &Server{
		address:     cfg.Address,
		subtitles:   cfg.Subtitles,
		logger:      logging.OrDiscard(cfg.Logger).With("component", "api-server"),
		cache:       search.NewCache(cfg.CacheSize),
		highlighter: search.HTMLHighlighter,
		viewport:    viewport.NewRegistry(),
	}
	s.SetEpisodes(episodes)
	return s
}

// SetEpisodes replaces the searchable episode list.
func (s *Server) SetEpisodes(episodes []domain.Episode) {
	byID := make(map[string]int, len(episodes))
	for i, ep := range episodes {
		byID[ep.ID] = i
	}

	s.mu.Lock()
	old := s.cancels
	s.episodes = episodes
	s.byID = byID
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range old {
		cancel()
	}

	cancels := make([]func(), 0, len(episodes))
	for _, ep := range episodes {
		if ep.HasTranscript() {
			cancels = append(cancels, s.viewport.Observe(ep.ID, s.onVisibilityChange))
		}
	}

	s.mu.Lock()
	s.cancels = cancels
	s.mu.Unlock()

	s.logger.Info("episode list updated", "episodes", len(episodes))
}

// onVisibilityChange pre-marks the cues of a matching episode that scrolled
// into view, so expanding its transcript is served from the cache.
func (s *Server) onVisibilityChange(id string, visible bool) {
	if !visible {
		return
	}

	s.mu.RLock()
	tokens := s.tokens
	var texts []string
	if i, ok := s.byID[id]; ok && len(tokens) > 0 && search.MatchesEpisode(&s.episodes[i], tokens, true) {
		cues := s.episodes[i].Cues
		texts = make([]string, len(cues))
		for j, c := range cues {
			texts[j] = c.Text
		}
	}
	s.mu.RUnlock()

	if len(tokens) == 0 || len(texts) == 0 {
		return
	}
	s.cache.Warm(texts, tokens)
	s.logger.Debug("warmed transcript highlights", "episode", id, "cues", len(texts))
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/visibility", s.handleVisibility)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()
	s.logger.Info("api server listening", "address", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) snapshot() []domain.Episode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.episodes
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
