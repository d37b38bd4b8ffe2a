package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/logging"
	"broadcast-search/pkg/search"
)

// Load reads every snapshot under dir and returns the episodes they contain,
// newest air date first. Episodes appearing in several snapshots are kept once
// (the copy from the most recently fetched snapshot wins). Episodes without
// parsed cues get them from their raw transcript. Unreadable snapshot files
// are logged and skipped.
func Load(dir string, logger *slog.Logger) ([]domain.Episode, error) {
	logger = logging.OrDiscard(logger)

	schedules, err := readSchedules(dir, logger)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(schedules, func(i, j int) bool {
		return schedules[i].FetchedAt.After(schedules[j].FetchedAt)
	})

	seen := make(map[string]bool)
	var episodes []domain.Episode
	for _, schedule := range schedules {
		for i := range schedule.Episodes {
			ep := &schedule.Episodes[i]
			if len(ep.Cues) == 0 && strings.TrimSpace(ep.Transcript) != "" {
				ep.Cues = search.ParseTranscript(ep.Transcript)
			}
		}

		dropped, err := schedule.Validate()
		if err != nil {
			logger.Warn("skipping invalid snapshot",
				"channel", schedule.Channel, "date", schedule.Date, "error", err)
			continue
		}
		if dropped > 0 {
			logger.Warn("dropped invalid episodes",
				"channel", schedule.Channel, "date", schedule.Date, "dropped", dropped)
		}

		for _, ep := range schedule.Episodes {
			if seen[ep.ID] {
				continue
			}
			seen[ep.ID] = true
			episodes = append(episodes, ep)
		}
	}

	domain.SortNewestFirst(episodes)

	logger.Info("snapshots loaded",
		"dir", dir, "schedules", len(schedules), "episodes", len(episodes))
	return episodes, nil
}

func readSchedules(dir string, logger *slog.Logger) ([]domain.Schedule, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat snapshot dir: %w", err)
	}

	var schedules []domain.Schedule
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != fileExtension || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("failed to read snapshot", "path", path, "error", err)
			return nil
		}

		var schedule domain.Schedule
		if err := json.Unmarshal(data, &schedule); err != nil {
			logger.Warn("failed to decode snapshot", "path", path, "error", err)
			return nil
		}
		schedules = append(schedules, schedule)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk snapshot dir: %w", err)
	}
	return schedules, nil
}
