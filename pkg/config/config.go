// Package config loads the broadcast-search configuration from a YAML or TOML
// file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendNone     = "none"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Schedule source formats.
const (
	FormatAuto = ""
	FormatHTML = "html"
	FormatFeed = "feed"
)

var ErrNoConfig = errors.New("no config file found")

// Config holds all configuration.
type Config struct {
	Scraper ScraperConfig `yaml:"scraper" toml:"scraper"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// ScraperConfig controls schedule and transcript collection.
type ScraperConfig struct {
	Channels []ChannelConfig `yaml:"channels" toml:"channels"`

	// Days is how many days back (including today) each pass re-scrapes.
	Days int `yaml:"days" toml:"days"`

	// Interval between passes in loop mode, e.g. "6h".
	Interval string `yaml:"interval" toml:"interval"`

	// Workers is the number of parallel episode fetchers.
	Workers int `yaml:"workers" toml:"workers"`

	// SnapshotDir receives the dated JSON snapshots.
	SnapshotDir string `yaml:"snapshot_dir" toml:"snapshot_dir"`

	// ClientType selects the request header profile: "browser" or "cloudflare".
	ClientType string `yaml:"client_type" toml:"client_type"`

	// Timeout per HTTP request, e.g. "30s".
	Timeout string `yaml:"timeout" toml:"timeout"`
}

// ChannelConfig describes one schedule source.
type ChannelConfig struct {
	Name string `yaml:"name" toml:"name"`

	// ScheduleURL may contain a {date} placeholder that is replaced with the
	// schedule day (YYYY-MM-DD).
	ScheduleURL string `yaml:"schedule_url" toml:"schedule_url"`

	// Format is "html", "feed" or empty to detect from the response.
	Format string `yaml:"format" toml:"format"`

	// Selectors locate schedule entries on HTML pages.
	Selectors SelectorConfig `yaml:"selectors" toml:"selectors"`
}

// SelectorConfig holds the CSS selectors used on HTML schedule pages.
type SelectorConfig struct {
	Item        string `yaml:"item" toml:"item"`
	Title       string `yaml:"title" toml:"title"`
	Description string `yaml:"description" toml:"description"`
	Time        string `yaml:"time" toml:"time"`
	Link        string `yaml:"link" toml:"link"`
}

// StorageConfig selects and configures the episode store.
type StorageConfig struct {
	Backend string `yaml:"backend" toml:"backend"`

	MongoURI        string `yaml:"mongo_uri" toml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database" toml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection" toml:"mongo_collection"`

	PostgresDSN string `yaml:"postgres_dsn" toml:"postgres_dsn"`

	SupabaseURL              string `yaml:"supabase_url" toml:"supabase_url"`
	SupabaseKey              string `yaml:"supabase_key" toml:"supabase_key"`
	SupabasePassword         string `yaml:"supabase_password" toml:"supabase_password"`
	SupabaseConnectionString string `yaml:"supabase_connection_string" toml:"supabase_connection_string"`

	SQLitePath string `yaml:"sqlite_path" toml:"sqlite_path"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Address string `yaml:"address" toml:"address"`

	// Subtitles is the default for the subtitles query parameter.
	Subtitles bool `yaml:"subtitles" toml:"subtitles"`

	// CacheSize bounds the highlight cache.
	CacheSize int `yaml:"cache_size" toml:"cache_size"`
}

// LoggingConfig defines logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Scraper.Days <= 0 {
		c.Scraper.Days = 1
	}
	if c.Scraper.Interval == "" {
		c.Scraper.Interval = "6h"
	}
	if c.Scraper.Workers <= 0 {
		c.Scraper.Workers = 8
	}
	if c.Scraper.SnapshotDir == "" {
		c.Scraper.SnapshotDir = "data"
	}
	if c.Scraper.ClientType == "" {
		c.Scraper.ClientType = "browser"
	}
	if c.Scraper.Timeout == "" {
		c.Scraper.Timeout = "30s"
	}
	for i := range c.Scraper.Channels {
		c.Scraper.Channels[i].Selectors.applyDefaults()
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendNone
	}
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = "broadcastsearch"
	}
	if c.Storage.MongoCollection == "" {
		c.Storage.MongoCollection = "episodes"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(c.Scraper.SnapshotDir, "episodes.db")
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.CacheSize <= 0 {
		c.Server.CacheSize = 4096
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (s *SelectorConfig) applyDefaults() {
	if s.Item == "" {
		s.Item = ".programme"
	}
	if s.Title == "" {
		s.Title = ".programme__title"
	}
	if s.Description == "" {
		s.Description = ".programme__synopsis"
	}
	if s.Time == "" {
		s.Time = ".programme__time"
	}
	if s.Link == "" {
		s.Link = "a[href]"
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	var errs []error

	for i, ch := range c.Scraper.Channels {
		if strings.TrimSpace(ch.Name) == "" {
			errs = append(errs, fmt.Errorf("scraper.channels[%d]: name is required", i))
		}
		if strings.TrimSpace(ch.ScheduleURL) == "" {
			errs = append(errs, fmt.Errorf("scraper.channels[%d]: schedule_url is required", i))
		}
		switch ch.Format {
		case FormatAuto, FormatHTML, FormatFeed:
		default:
			errs = append(errs, fmt.Errorf("scraper.channels[%d]: unsupported format %q", i, ch.Format))
		}
	}

	if _, err := c.ScrapeInterval(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}

	switch c.Scraper.ClientType {
	case "browser", "cloudflare":
	default:
		errs = append(errs, fmt.Errorf("scraper.client_type: unsupported value %q", c.Scraper.ClientType))
	}

	switch c.Storage.Backend {
	case BackendNone, BackendSQLite:
	case BackendMongo:
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("storage.mongo_uri is required for the mongo backend"))
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	case BackendSupabase:
		if c.Storage.SupabaseConnectionString == "" && c.Storage.SupabaseURL == "" {
			errs = append(errs, errors.New("storage.supabase_url or storage.supabase_connection_string is required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}

// ScrapeInterval parses Scraper.Interval.
func (c *Config) ScrapeInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scraper.Interval)
	if err != nil {
		return 0, fmt.Errorf("scraper.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("scraper.interval: must be positive, got %s", d)
	}
	return d, nil
}

// RequestTimeout parses Scraper.Timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scraper.Timeout)
	if err != nil {
		return 0, fmt.Errorf("scraper.timeout: %w", err)
	}
	return d, nil
}

// DefaultSearchPaths returns the config file search order used when no
// explicit path is given.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml", "config.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".config", "broadcast-search")
		paths = append(paths, filepath.Join(dir, "config.yaml"), filepath.Join(dir, "config.toml"))
	}
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrNoConfig
}

// Load reads, defaults and validates the configuration at path. The decoder
// is chosen by file extension; environment variables are expanded first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(expanded, cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(expanded, cfg)
	default:
		return nil, fmt.Errorf("config %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads the explicit or discovered config file, falling back to
// Default when no file exists and none was requested.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := FindConfig(explicit)
	if errors.Is(err, ErrNoConfig) {
		return Default(), "", nil
	}
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}
