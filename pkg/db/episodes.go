package db

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"broadcast-search/pkg/domain"
)

// Dialect selects the SQL flavour of an EpisodeTable.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) String() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "postgres"
}

// placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) placeholder(n int) string {
	if d == DialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

func (d Dialect) placeholders(from, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

func (d Dialect) timeArg(t time.Time) any {
	if t.IsZero() {
		t = time.Now()
	}
	if d == DialectSQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

const episodeColumns = "id, channel, title, description, air_date, start_time, url, transcript_url, transcript, cues, crawled_at"

// EpisodeTable stores episodes in the `episode` table of a SQL database.
type EpisodeTable struct {
	provider DBProvider
	dialect  Dialect
}

// NewEpisodeTable binds the episode table to a connected SQL client.
func NewEpisodeTable(provider DBProvider, dialect Dialect) *EpisodeTable {
	return &EpisodeTable{provider: provider, dialect: dialect}
}

func (t *EpisodeTable) db() (*sql.DB, error) {
	if t.provider == nil || t.provider.DB() == nil {
		return nil, fmt.Errorf("%s: %w", t.dialect, ErrNotConnected)
	}
	return t.provider.DB(), nil
}

// EnsureSchema creates the episode table and its indexes when missing.
func (t *EpisodeTable) EnsureSchema(ctx context.Context) error {
	db, err := t.db()
	if err != nil {
		return err
	}

	crawledAt := "TIMESTAMPTZ NOT NULL DEFAULT now()"
	if t.dialect == DialectSQLite {
		crawledAt = "TEXT NOT NULL DEFAULT ''"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS episode (
  id TEXT PRIMARY KEY,
  channel TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  air_date TEXT NOT NULL DEFAULT '',
  start_time TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  transcript_url TEXT NOT NULL DEFAULT '',
  transcript TEXT NOT NULL DEFAULT '',
  cues TEXT NOT NULL DEFAULT '',
  crawled_at ` + crawledAt + `
)`,
		`CREATE INDEX IF NOT EXISTS episode_url_idx ON episode (url)`,
		`CREATE INDEX IF NOT EXISTS episode_air_date_idx ON episode (air_date)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create episode schema: %w", err)
		}
	}
	return nil
}

func (t *EpisodeTable) insertQuery(overwrite bool) string {
	query := "INSERT INTO episode (" + episodeColumns + ") VALUES (" + t.dialect.placeholders(1, 11) + ")"
	if !overwrite {
		return query + " ON CONFLICT (id) DO NOTHING"
	}
	return query + ` ON CONFLICT (id) DO UPDATE SET
  channel = excluded.channel,
  title = excluded.title,
  description = excluded.description,
  air_date = excluded.air_date,
  start_time = excluded.start_time,
  url = excluded.url,
  transcript_url = excluded.transcript_url,
  transcript = excluded.transcript,
  cues = excluded.cues,
  crawled_at = excluded.crawled_at`
}

// SaveEpisode inserts or replaces one episode.
func (t *EpisodeTable) SaveEpisode(ctx context.Context, episode *domain.Episode) error {
	_, err := t.write(ctx, []domain.Episode{*episode}, true)
	return err
}

// UpsertEpisodes inserts or replaces a batch of episodes in one transaction.
func (t *EpisodeTable) UpsertEpisodes(ctx context.Context, episodes []domain.Episode) error {
	_, err := t.write(ctx, episodes, true)
	return err
}

// InsertEpisodes inserts a batch of episodes in one transaction, leaving rows
// that already exist untouched. It returns the number of rows inserted.
func (t *EpisodeTable) InsertEpisodes(ctx context.Context, episodes []domain.Episode) (int, error) {
	return t.write(ctx, episodes, false)
}

func (t *EpisodeTable) write(ctx context.Context, episodes []domain.Episode, overwrite bool) (int, error) {
	db, err := t.db()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, t.insertQuery(overwrite))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, ep := range episodes {
		if ep.ID == "" {
			continue
		}
		args, err := t.rowArgs(&ep)
		if err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("insert episode id=%q: %w", ep.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

func (t *EpisodeTable) rowArgs(ep *domain.Episode) ([]any, error) {
	cues := ""
	if len(ep.Cues) > 0 {
		data, err := json.Marshal(ep.Cues)
		if err != nil {
			return nil, fmt.Errorf("encode cues id=%q: %w", ep.ID, err)
		}
		cues = string(data)
	}
	return []any{
		ep.ID, ep.Channel, ep.Title, ep.Description, ep.AirDate, ep.StartTime,
		ep.URL, ep.TranscriptURL, ep.Transcript, cues, t.dialect.timeArg(ep.CrawledAt),
	}, nil
}

// LoadEpisodes returns every stored episode, newest air date first.
func (t *EpisodeTable) LoadEpisodes(ctx context.Context) ([]domain.Episode, error) {
	db, err := t.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT "+episodeColumns+" FROM episode ORDER BY air_date DESC, start_time ASC, title ASC")
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []domain.Episode
	for rows.Next() {
		var (
			ep        domain.Episode
			cues      string
			crawledAt string
		)
		if err := rows.Scan(&ep.ID, &ep.Channel, &ep.Title, &ep.Description, &ep.AirDate, &ep.StartTime,
			&ep.URL, &ep.TranscriptURL, &ep.Transcript, &cues, &crawledAt); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		if cues != "" {
			if err := json.Unmarshal([]byte(cues), &ep.Cues); err != nil {
				return nil, fmt.Errorf("decode cues id=%q: %w", ep.ID, err)
			}
		}
		ep.CrawledAt = parseTime(crawledAt)
		episodes = append(episodes, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return episodes, nil
}

// ExistingURLs returns the URLs of all stored episodes as a set.
func (t *EpisodeTable) ExistingURLs(ctx context.Context) (map[string]bool, error) {
	db, err := t.db()
	if err != nil {
		return nil, err
	}
	return collectURLs(ctx, db, "SELECT url FROM episode WHERE url <> ''")
}

// ExistingURLsIn reports which of the given URLs are already stored, without
// loading the whole URL set.
func (t *EpisodeTable) ExistingURLsIn(ctx context.Context, urls []string) (map[string]bool, error) {
	db, err := t.db()
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}

	query, args := t.buildURLInQuery(urls)
	return collectURLs(ctx, db, query, args...)
}

// buildURLInQuery builds the IN query for a batch of URLs. The leading comment
// makes the statement text unique per batch so parallel batches do not share
// a cached prepared statement.
func (t *EpisodeTable) buildURLInQuery(urls []string) (string, []any) {
	hash := md5.Sum([]byte(urls[0]))
	var b strings.Builder
	fmt.Fprintf(&b, "/* q_%d_%x */ SELECT url FROM episode WHERE url IN (", len(urls), hash[:4])
	b.WriteString(t.dialect.placeholders(1, len(urls)))
	b.WriteString(")")

	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}
	return b.String(), args
}

// Close closes the underlying client when it owns a closable handle.
func (t *EpisodeTable) Close(context.Context) error {
	if c, ok := t.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func collectURLs(ctx context.Context, db *sql.DB, query string, args ...any) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		if u != "" {
			set[u] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return set, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
