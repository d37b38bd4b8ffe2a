package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"broadcast-search/pkg/domain"
)

// restRow is the JSON shape of an episode row exchanged with the Supabase
// REST API. It mirrors the columns created by EpisodeTable.EnsureSchema.
type restRow struct {
	ID            string `json:"id"`
	Channel       string `json:"channel"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	AirDate       string `json:"air_date"`
	StartTime     string `json:"start_time"`
	URL           string `json:"url"`
	TranscriptURL string `json:"transcript_url"`
	Transcript    string `json:"transcript"`
	Cues          string `json:"cues"`
	CrawledAt     string `json:"crawled_at,omitempty"`
}

func toRESTRow(ep *domain.Episode) (restRow, error) {
	row := restRow{
		ID:            ep.ID,
		Channel:       ep.Channel,
		Title:         ep.Title,
		Description:   ep.Description,
		AirDate:       ep.AirDate,
		StartTime:     ep.StartTime,
		URL:           ep.URL,
		TranscriptURL: ep.TranscriptURL,
		Transcript:    ep.Transcript,
	}
	if !ep.CrawledAt.IsZero() {
		row.CrawledAt = ep.CrawledAt.UTC().Format(time.RFC3339Nano)
	}
	if len(ep.Cues) > 0 {
		data, err := json.Marshal(ep.Cues)
		if err != nil {
			return restRow{}, fmt.Errorf("encode cues id=%q: %w", ep.ID, err)
		}
		row.Cues = string(data)
	}
	return row, nil
}

func (r restRow) episode() (domain.Episode, error) {
	ep := domain.Episode{
		ID:            r.ID,
		Channel:       r.Channel,
		Title:         r.Title,
		Description:   r.Description,
		AirDate:       r.AirDate,
		StartTime:     r.StartTime,
		URL:           r.URL,
		TranscriptURL: r.TranscriptURL,
		Transcript:    r.Transcript,
		CrawledAt:     parseTime(r.CrawledAt),
	}
	if r.Cues != "" {
		if err := json.Unmarshal([]byte(r.Cues), &ep.Cues); err != nil {
			return domain.Episode{}, fmt.Errorf("decode cues id=%q: %w", r.ID, err)
		}
	}
	return ep, nil
}

// RESTStore stores episodes through the Supabase REST API. It is used when the
// project is configured with URL and key only, without a database password.
type RESTStore struct {
	client *SupabaseClient
	table  string
}

// NewRESTStore creates a REST-backed store on a connected Supabase client.
func NewRESTStore(client *SupabaseClient) *RESTStore {
	return &RESTStore{client: client, table: "episode"}
}

// SaveEpisode upserts one episode keyed by its ID.
func (s *RESTStore) SaveEpisode(_ context.Context, episode *domain.Episode) error {
	sdk := s.client.SDK()
	if sdk == nil {
		return fmt.Errorf("supabase REST: %w", ErrNotConnected)
	}

	row, err := toRESTRow(episode)
	if err != nil {
		return err
	}
	if _, _, err := sdk.From(s.table).Upsert(row, "id", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("upsert episode id=%q: %w", episode.ID, err)
	}
	return nil
}

// LoadEpisodes returns every stored episode, newest air date first.
func (s *RESTStore) LoadEpisodes(_ context.Context) ([]domain.Episode, error) {
	sdk := s.client.SDK()
	if sdk == nil {
		return nil, fmt.Errorf("supabase REST: %w", ErrNotConnected)
	}

	var rows []restRow
	if _, err := sdk.From(s.table).Select("*", "", false).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("select episodes: %w", err)
	}

	episodes := make([]domain.Episode, 0, len(rows))
	for _, row := range rows {
		ep, err := row.episode()
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	domain.SortNewestFirst(episodes)
	return episodes, nil
}

// ExistingURLs returns the URLs of all stored episodes as a set.
func (s *RESTStore) ExistingURLs(_ context.Context) (map[string]bool, error) {
	sdk := s.client.SDK()
	if sdk == nil {
		return nil, fmt.Errorf("supabase REST: %w", ErrNotConnected)
	}

	var rows []struct {
		URL string `json:"url"`
	}
	if _, err := sdk.From(s.table).Select("url", "", false).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("select urls: %w", err)
	}

	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.URL != "" {
			set[row.URL] = true
		}
	}
	return set, nil
}

// Close closes the Supabase client.
func (s *RESTStore) Close(context.Context) error {
	return s.client.Close()
}
