package db

import (
	"context"
	"sync"

	"broadcast-search/pkg/domain"
)

// MemoryStore keeps episodes in process memory. It backs the "none" storage
// backend, where the snapshot files are the only durable copy.
type MemoryStore struct {
	mu       sync.RWMutex
	episodes map[string]domain.Episode
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{episodes: make(map[string]domain.Episode)}
}

func (s *MemoryStore) SaveEpisode(_ context.Context, episode *domain.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes[episode.ID] = *episode
	return nil
}

func (s *MemoryStore) LoadEpisodes(context.Context) ([]domain.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	episodes := make([]domain.Episode, 0, len(s.episodes))
	for _, ep := range s.episodes {
		episodes = append(episodes, ep)
	}
	domain.SortNewestFirst(episodes)
	return episodes, nil
}

func (s *MemoryStore) ExistingURLs(context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]bool, len(s.episodes))
	for _, ep := range s.episodes {
		if ep.URL != "" {
			set[ep.URL] = true
		}
	}
	return set, nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}
