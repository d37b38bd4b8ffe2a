package db

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"broadcast-search/pkg/config"
	"broadcast-search/pkg/domain"
)

func openTestTable(t *testing.T) *EpisodeTable {
	t.Helper()

	ctx := context.Background()
	store, err := OpenStore(ctx, config.StorageConfig{
		Backend:    config.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "episodes.db"),
	}, nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })

	table, ok := store.(*EpisodeTable)
	if !ok {
		t.Fatalf("expected *EpisodeTable, got %T", store)
	}
	return table
}

func testEpisode(id, date, start, title, url string) domain.Episode {
	return domain.Episode{
		ID:        id,
		Channel:   "news",
		Title:     title,
		AirDate:   date,
		StartTime: start,
		URL:       url,
		CrawledAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEpisodeTable_SaveAndLoad(t *testing.T) {
	table := openTestTable(t)
	ctx := context.Background()

	withCues := testEpisode("a", "2024-05-01", "18:00", "Evening News", "https://tv.example.com/a")
	withCues.Cues = []domain.Cue{{Index: 0, Time: "00:00:01.000 --> 00:00:02.000", Text: "Good evening"}}

	for _, ep := range []domain.Episode{
		testEpisode("b", "2024-04-30", "09:00", "Old Show", "https://tv.example.com/b"),
		withCues,
	} {
		if err := table.SaveEpisode(ctx, &ep); err != nil {
			t.Fatalf("SaveEpisode(%s): %v", ep.ID, err)
		}
	}

	episodes, err := table.LoadEpisodes(ctx)
	if err != nil {
		t.Fatalf("LoadEpisodes: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	if episodes[0].ID != "a" || episodes[1].ID != "b" {
		t.Errorf("expected newest first, got %s, %s", episodes[0].ID, episodes[1].ID)
	}
	if len(episodes[0].Cues) != 1 || episodes[0].Cues[0].Text != "Good evening" {
		t.Errorf("cues not round-tripped: %+v", episodes[0].Cues)
	}
	if !episodes[0].CrawledAt.Equal(withCues.CrawledAt) {
		t.Errorf("crawled_at = %v, want %v", episodes[0].CrawledAt, withCues.CrawledAt)
	}
}

func TestEpisodeTable_UpsertReplaces(t *testing.T) {
	table := openTestTable(t)
	ctx := context.Background()

	ep := testEpisode("a", "2024-05-01", "18:00", "Draft Title", "https://tv.example.com/a")
	if err := table.SaveEpisode(ctx, &ep); err != nil {
		t.Fatal(err)
	}
	ep.Title = "Final Title"
	if err := table.UpsertEpisodes(ctx, []domain.Episode{ep}); err != nil {
		t.Fatal(err)
	}

	episodes, err := table.LoadEpisodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 1 || episodes[0].Title != "Final Title" {
		t.Fatalf("upsert did not replace row: %+v", episodes)
	}
}

func TestEpisodeTable_InsertEpisodesSkipsExisting(t *testing.T) {
	table := openTestTable(t)
	ctx := context.Background()

	first := testEpisode("a", "2024-05-01", "18:00", "Original", "https://tv.example.com/a")
	if err := table.SaveEpisode(ctx, &first); err != nil {
		t.Fatal(err)
	}

	changed := first
	changed.Title = "Changed"
	inserted, err := table.InsertEpisodes(ctx, []domain.Episode{
		changed,
		testEpisode("b", "2024-05-01", "19:00", "New", "https://tv.example.com/b"),
		{Title: "no id"},
	})
	if err != nil {
		t.Fatalf("InsertEpisodes: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}

	episodes, err := table.LoadEpisodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 2 || episodes[0].Title != "Original" {
		t.Fatalf("unexpected rows: %+v", episodes)
	}
}

func TestEpisodeTable_ExistingURLs(t *testing.T) {
	table := openTestTable(t)
	ctx := context.Background()

	if err := table.UpsertEpisodes(ctx, []domain.Episode{
		testEpisode("a", "2024-05-01", "18:00", "A", "https://tv.example.com/a"),
		testEpisode("b", "2024-05-01", "19:00", "B", "https://tv.example.com/b"),
		testEpisode("c", "2024-05-01", "20:00", "C", ""),
	}); err != nil {
		t.Fatal(err)
	}

	all, err := table.ExistingURLs(ctx)
	if err != nil {
		t.Fatalf("ExistingURLs: %v", err)
	}
	if len(all) != 2 || !all["https://tv.example.com/a"] || !all["https://tv.example.com/b"] {
		t.Errorf("ExistingURLs = %v", all)
	}

	some, err := table.ExistingURLsIn(ctx, []string{"https://tv.example.com/b", "https://tv.example.com/z"})
	if err != nil {
		t.Fatalf("ExistingURLsIn: %v", err)
	}
	if len(some) != 1 || !some["https://tv.example.com/b"] {
		t.Errorf("ExistingURLsIn = %v", some)
	}

	none, err := table.ExistingURLsIn(ctx, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("ExistingURLsIn(nil) = %v, %v", none, err)
	}
}

func TestEpisodeTable_NotConnected(t *testing.T) {
	table := NewEpisodeTable(NewPostgresClient(PostgresConfig{}), DialectPostgres)
	if _, err := table.LoadEpisodes(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestBuildURLInQuery(t *testing.T) {
	urls := []string{"https://a", "https://b", "https://c"}

	pg := NewEpisodeTable(nil, DialectPostgres)
	query, args := pg.buildURLInQuery(urls)
	if !strings.HasSuffix(query, "WHERE url IN ($1, $2, $3)") {
		t.Errorf("postgres query = %q", query)
	}
	if !strings.HasPrefix(query, "/* q_3_") {
		t.Errorf("missing batch comment: %q", query)
	}
	if len(args) != 3 || args[2] != "https://c" {
		t.Errorf("args = %v", args)
	}

	lite := NewEpisodeTable(nil, DialectSQLite)
	query, _ = lite.buildURLInQuery(urls)
	if !strings.HasSuffix(query, "WHERE url IN (?, ?, ?)") {
		t.Errorf("sqlite query = %q", query)
	}
}
