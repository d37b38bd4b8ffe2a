package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/search"
	"broadcast-search/pkg/snapshot"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	snapDir := filepath.Join(dir, "snapshots")

	w, err := snapshot.NewWriter(snapDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.Write(context.Background(), domain.Schedule{
		Channel: "Channel One",
		Date:    "2024-05-01",
		Episodes: []domain.Episode{
			{Title: "Evening News", StartTime: "18:00", URL: "https://tv.example.com/news",
				Cues: []domain.Cue{
					{Index: 0, Time: "00:00:01.000 --> 00:00:02.000", Text: "Good evening"},
					{Index: 1, Time: "00:00:02.000 --> 00:00:04.000", Text: "Flooding tonight"},
				}},
			{Title: "Garden Hour", StartTime: "19:00", Description: "Ponds and roses"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "config.yaml")
	cfg := "scraper:\n  snapshot_dir: " + snapDir + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestSearchCommand_Text(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := runCommand(t, "--config", cfgPath, "search", "flooding", "--subtitles")
	if !strings.Contains(out, "Evening News") {
		t.Errorf("missing episode row:\n%s", out)
	}
	if strings.Contains(out, "Garden Hour") {
		t.Errorf("non-matching episode printed:\n%s", out)
	}
	if !strings.Contains(out, "> 00:00:02.000 --> 00:00:04.000") || !strings.Contains(out, "[Flooding] tonight") {
		t.Errorf("missing highlighted cue:\n%s", out)
	}

	out = runCommand(t, "--config", cfgPath, "search", "flooding")
	if !strings.Contains(out, "No episodes found.") {
		t.Errorf("title-only search should find nothing:\n%s", out)
	}
}

func TestSearchCommand_JSON(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := runCommand(t, "--config", cfgPath, "search", "--json", "ponds")
	var payload struct {
		Tokens   []string      `json:"tokens"`
		Episodes []jsonEpisode `json:"episodes"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(payload.Episodes) != 1 || payload.Episodes[0].Title != "Garden Hour" {
		t.Errorf("episodes = %+v", payload.Episodes)
	}
	if len(payload.Tokens) != 1 || payload.Tokens[0] != "ponds" {
		t.Errorf("tokens = %v", payload.Tokens)
	}
}

func TestSearchCommand_ShortQueryListsAll(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out := runCommand(t, "--config", cfgPath, "search", "--limit", "1")
	if !strings.Contains(out, "Showing 1 of 2 episodes.") {
		t.Errorf("expected limit notice:\n%s", out)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Date", "Count"}, [][]string{{"2024-05-01", "3"}, {"2024-05-02"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "Date") || !strings.Contains(out, "2024-05-02") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("empty headers should render nothing")
	}
}

func TestTerminalHighlighter_NonTerminal(t *testing.T) {
	hl := terminalHighlighter(&bytes.Buffer{})
	if got := hl.Highlight("Flooding tonight", search.Tokenize("flooding")); got != "[Flooding] tonight" {
		t.Errorf("got %q", got)
	}
}

func TestSearchOptions_ShowFull(t *testing.T) {
	opts := searchOptions{full: []string{"a", "c"}}
	if !opts.showFull("a") || !opts.showFull("c") {
		t.Error("listed episodes should be shown in full")
	}
	if opts.showFull("b") || (searchOptions{}).showFull("a") {
		t.Error("unlisted episodes should get context windows")
	}
}
