// Package snapshot persists scraped schedules as dated JSON files and loads
// them back as the searchable episode list.
//
// Layout: <dir>/<channel>/<YYYY-MM-DD>.json, one domain.Schedule per file.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/logging"

	"github.com/gofrs/flock"
)

const (
	lockFileName  = ".snapshot.lock"
	lockRetry     = 50 * time.Millisecond
	fileExtension = ".json"
)

var ErrLocked = errors.New("snapshot directory is locked by another writer")

// Writer writes schedule snapshots. Writers in different processes sharing a
// directory are serialized through a lock file.
type Writer struct {
	dir    string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewWriter creates a writer rooted at dir, creating the directory if needed.
func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("snapshot directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Writer{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, lockFileName)),
		logger: logging.OrDiscard(logger),
	}, nil
}

// Dir returns the snapshot root.
func (w *Writer) Dir() string {
	return w.dir
}

// Write stores the schedule at its dated path, replacing any previous snapshot
// for the same channel and day. The file is written to a temporary name and
// renamed so readers never observe a partial snapshot.
func (w *Writer) Write(ctx context.Context, schedule domain.Schedule) (string, error) {
	schedule.Episodes = append([]domain.Episode(nil), schedule.Episodes...)
	dropped, err := schedule.Validate()
	if err != nil {
		return "", fmt.Errorf("invalid schedule: %w", err)
	}
	if dropped > 0 {
		w.logger.Warn("dropped invalid episodes from snapshot",
			"channel", schedule.Channel, "date", schedule.Date, "dropped", dropped)
	}
	if schedule.FetchedAt.IsZero() {
		schedule.FetchedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(schedule, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	ok, err := w.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return "", fmt.Errorf("acquire snapshot lock: %w", err)
	}
	if !ok {
		return "", ErrLocked
	}
	defer func() {
		if err := w.lock.Unlock(); err != nil {
			w.logger.Warn("failed to release snapshot lock", "error", err)
		}
	}()

	path := Path(w.dir, schedule.Channel, schedule.Date)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}

	w.logger.Info("snapshot written",
		"path", path, "episodes", len(schedule.Episodes))
	return path, nil
}

// Path returns the snapshot file for a channel and day.
func Path(dir, channel, date string) string {
	return filepath.Join(dir, channelDir(channel), date+fileExtension)
}

// channelDir turns a channel name into a safe directory name.
func channelDir(channel string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(channel)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create channel dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
