package db

import (
	"context"
	"database/sql"

	"broadcast-search/pkg/domain"
)

// DBProvider is implemented by the SQL clients (Postgres, Supabase, SQLite)
// and gives access to their sql.DB handle.
type DBProvider interface {
	DB() *sql.DB
}

// Store persists scraped episodes. Implemented by the Mongo Client, the SQL
// EpisodeTable and the Supabase REST store.
type Store interface {
	SaveEpisode(ctx context.Context, episode *domain.Episode) error
	LoadEpisodes(ctx context.Context) ([]domain.Episode, error)
	ExistingURLs(ctx context.Context) (map[string]bool, error)
	Close(ctx context.Context) error
}
