package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"broadcast-search/pkg/config"
	"broadcast-search/pkg/db"
	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/logging"
	"broadcast-search/pkg/snapshot"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, found, err := config.LoadOrDefault(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			cfg.Logging.Level = *c.logLevelFlag
		}
		c.config = cfg
		c.configPath = found
	})
	return c.config, c.configErr
}

// log returns the process logger, built from the logging section of the
// config. Logs go to stderr so command output stays clean.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.Discard()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: %v; falling back to text\n", err)
			logger, _ = logging.New(logging.Options{Level: cfg.Logging.Level})
		}
		c.logger = logger
	})
	return c.logger
}

// loadEpisodes returns the searchable episodes: every snapshot, plus the
// configured store's episodes that no snapshot has.
func (c *commandContext) loadEpisodes(ctx context.Context) ([]domain.Episode, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.log()

	episodes, err := snapshot.Load(cfg.Scraper.SnapshotDir, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == config.BackendNone {
		return episodes, nil
	}

	store, err := db.OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close(ctx) }()

	stored, err := store.LoadEpisodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored episodes: %w", err)
	}

	seen := make(map[string]bool, len(episodes))
	for _, ep := range episodes {
		seen[ep.ID] = true
	}
	for _, ep := range stored {
		if seen[ep.ID] {
			continue
		}
		if err := ep.Normalize(); err != nil {
			continue
		}
		episodes = append(episodes, ep)
	}
	domain.SortNewestFirst(episodes)
	return episodes, nil
}
