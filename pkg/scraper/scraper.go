// Package scraper collects daily schedules, follows each episode to its page,
// downloads subtitle transcripts and persists the result to the episode store
// and the dated snapshots.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"broadcast-search/pkg/config"
	"broadcast-search/pkg/db"
	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/filter"
	"broadcast-search/pkg/logging"
	"broadcast-search/pkg/schedule"
)

var (
	ErrNoChannels      = errors.New("no channels configured")
	ErrEmptyEpisodeURL = errors.New("episode URL is empty")
)

// Fetcher downloads a URL. Implemented by httpclient.HTTPClient.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// SnapshotWriter persists one scraped schedule. Implemented by snapshot.Writer.
type SnapshotWriter interface {
	Write(ctx context.Context, schedule domain.Schedule) (string, error)
}

// Config wires the scraper dependencies.
type Config struct {
	Channels  []config.ChannelConfig
	Workers   int
	Fetcher   Fetcher
	Store     db.Store
	Snapshots SnapshotWriter // optional
	Logger    *slog.Logger

	// Location is used to compute schedule days and feed start times.
	// Defaults to time.Local.
	Location *time.Location
}

// Service scrapes the configured channels.
type Service struct {
	channels  []config.ChannelConfig
	workers   int
	fetcher   Fetcher
	store     db.Store
	snapshots SnapshotWriter
	feeds     *schedule.FeedParser
	filters   []filter.Filter // keep links that point at episode pages
	location  *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a scraper service.
func New(cfg Config) (*Service, error) {
	if len(cfg.Channels) == 0 {
		return nil, ErrNoChannels
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("episode store is required")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Service{
		channels:  cfg.Channels,
		workers:   workers,
		fetcher:   cfg.Fetcher,
		store:     cfg.Store,
		snapshots: cfg.Snapshots,
		feeds:     schedule.NewFeedParser(loc),
		filters:   []filter.Filter{filter.NewBaseURLFilter()},
		location:  loc,
		logger:    logging.OrDiscard(cfg.Logger),
		now:       time.Now,
	}, nil
}

// Report summarizes the scrape of one channel for one day.
type Report struct {
	Channel      string
	Date         string
	Entries      int
	Known        int
	Fetched      int
	Transcripts  int
	Failed       int
	SnapshotPath string
}

// Scrape scrapes every configured channel for date (YYYY-MM-DD). A failing
// channel does not stop the others; their errors are joined.
func (s *Service) Scrape(ctx context.Context, date string) ([]Report, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAirDate, date)
	}

	var (
		reports []Report
		errs    []error
	)
	for _, ch := range s.channels {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.ScrapeChannel(ctx, ch, date)
		if err != nil {
			s.logger.Error("channel scrape failed", "channel", ch.Name, "date", date, "error", err)
			errs = append(errs, fmt.Errorf("%s %s: %w", ch.Name, date, err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// ScrapeChannel fetches one channel's schedule for date, enriches the
// episodes not seen before, saves them and writes the day's snapshot.
func (s *Service) ScrapeChannel(ctx context.Context, ch config.ChannelConfig, date string) (Report, error) {
	report := Report{Channel: ch.Name, Date: date}
	log := s.logger.With("channel", ch.Name, "date", date)

	scheduleURL := schedule.ExpandURL(ch.ScheduleURL, date)
	data, contentType, err := s.fetcher.Fetch(ctx, scheduleURL)
	if err != nil {
		return report, fmt.Errorf("fetch schedule: %w", err)
	}

	entries, err := s.parseEntries(ch, data, contentType, scheduleURL, date)
	if err != nil {
		return report, fmt.Errorf("parse schedule: %w", err)
	}
	report.Entries = len(entries)

	episodes := make([]domain.Episode, 0, len(entries))
	for _, entry := range entries {
		if entry.URL != "" {
			if keep, _ := filter.Keep(ctx, entry.URL, s.filters...); !keep {
				entry.URL = ""
			}
		}
		ep := domain.Episode{
			Channel:     ch.Name,
			Title:       entry.Title,
			Description: entry.Description,
			AirDate:     date,
			StartTime:   entry.StartTime,
			URL:         entry.URL,
		}
		if err := ep.Normalize(); err != nil {
			log.Debug("skipping schedule entry", "title", entry.Title, "error", err)
			continue
		}
		episodes = append(episodes, ep)
	}

	known, err := s.knownEpisodes(ctx, episodes)
	if err != nil {
		return report, err
	}

	var fresh []int
	for i := range episodes {
		prev, ok := known[episodes[i].URL]
		if !ok {
			fresh = append(fresh, i)
			continue
		}
		report.Known++
		reuseKnown(&episodes[i], prev)
		if err := s.store.SaveEpisode(ctx, &episodes[i]); err != nil {
			return report, fmt.Errorf("save episode: %w", err)
		}
	}

	log.Info("schedule parsed", "entries", report.Entries, "known", report.Known, "new", len(fresh))

	s.processInParallel(ctx, episodes, fresh, &report)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if s.snapshots != nil {
		path, err := s.snapshots.Write(ctx, domain.Schedule{
			Channel:   ch.Name,
			Date:      date,
			Episodes:  episodes,
			FetchedAt: s.now().UTC(),
		})
		if err != nil {
			return report, fmt.Errorf("write snapshot: %w", err)
		}
		report.SnapshotPath = path
	}

	log.Info("channel scraped",
		"fetched", report.Fetched, "transcripts", report.Transcripts, "failed", report.Failed)
	return report, nil
}

func (s *Service) parseEntries(ch config.ChannelConfig, data []byte, contentType, pageURL, date string) ([]schedule.Entry, error) {
	isFeed := ch.Format == config.FormatFeed ||
		(ch.Format == config.FormatAuto && schedule.IsFeed(data, contentType))
	if isFeed {
		return s.feeds.Parse(data, date)
	}

	return schedule.ParseHTML(string(data), pageURL, schedule.Selectors{
		Item:        ch.Selectors.Item,
		Title:       ch.Selectors.Title,
		Description: ch.Selectors.Description,
		Time:        ch.Selectors.Time,
		Link:        ch.Selectors.Link,
	})
}

// knownEpisodes returns the stored copies of episodes whose URL the store
// already has, keyed by URL.
func (s *Service) knownEpisodes(ctx context.Context, episodes []domain.Episode) (map[string]domain.Episode, error) {
	existing, err := s.store.ExistingURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing URLs: %w", err)
	}
	fresh := filter.NewAlreadyFetchedFilter(existing)

	wanted := make(map[string]bool)
	for _, ep := range episodes {
		if ep.URL == "" {
			continue
		}
		if keep, _ := fresh.ShouldKeep(ctx, ep.URL); !keep {
			wanted[ep.URL] = true
		}
	}
	if len(wanted) == 0 {
		return map[string]domain.Episode{}, nil
	}

	stored, err := s.store.LoadEpisodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored episodes: %w", err)
	}

	known := make(map[string]domain.Episode, len(wanted))
	for _, ep := range stored {
		if wanted[ep.URL] {
			known[ep.URL] = ep
		}
	}
	return known, nil
}

// reuseKnown copies what was fetched for a stored episode with the same page
// URL (a repeat broadcast) onto ep, keeping ep's own slot.
func reuseKnown(ep *domain.Episode, prev domain.Episode) {
	if ep.Description == "" {
		ep.Description = prev.Description
	}
	ep.TranscriptURL = prev.TranscriptURL
	ep.Transcript = prev.Transcript
	ep.Cues = prev.Cues
	ep.CrawledAt = prev.CrawledAt
}

// processInParallel enriches and saves episodes[i] for every i in indices.
// Failures are logged and counted; the episode keeps its schedule data.
func (s *Service) processInParallel(ctx context.Context, episodes []domain.Episode, indices []int, report *Report) {
	if len(indices) == 0 {
		return
	}

	jobs := make(chan int)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for w := 0; w < min(s.workers, len(indices)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				ep := &episodes[i]
				hasTranscript, err := s.processEpisode(ctx, ep)

				mu.Lock()
				if err != nil {
					report.Failed++
					s.logger.Warn("episode processing failed", "url", ep.URL, "title", ep.Title, "error", err)
				} else {
					report.Fetched++
					if hasTranscript {
						report.Transcripts++
					}
				}
				mu.Unlock()
			}
		}()
	}

	for _, i := range indices {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}

// processEpisode enriches the episode from its page, then saves it. An
// episode without a page URL is saved as listed.
func (s *Service) processEpisode(ctx context.Context, ep *domain.Episode) (bool, error) {
	if strings.TrimSpace(ep.URL) != "" {
		if err := s.enrichEpisode(ctx, ep); err != nil {
			return false, err
		}
	}
	ep.CrawledAt = s.now().UTC()

	if err := s.store.SaveEpisode(ctx, ep); err != nil {
		return false, fmt.Errorf("save episode: %w", err)
	}
	return ep.HasTranscript(), nil
}

// Run scrapes the last days days (today included) immediately and then once
// per interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration, days int) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	if days <= 0 {
		days = 1
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.runPass(ctx, days)

		select {
		case <-ctx.Done():
			s.logger.Info("scrape loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) runPass(ctx context.Context, days int) {
	start := time.Now()
	for _, date := range s.Dates(days) {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Scrape(ctx, date); err != nil {
			s.logger.Warn("scrape pass finished with errors", "date", date, "error", err)
		}
	}
	s.logger.Info("scrape pass complete", "days", days, "duration", time.Since(start).Round(time.Millisecond))
}

// Dates returns the last days schedule days, today first.
func (s *Service) Dates(days int) []string {
	today := s.now().In(s.location)
	dates := make([]string, 0, days)
	for d := 0; d < days; d++ {
		dates = append(dates, today.AddDate(0, 0, -d).Format(domain.DateLayout))
	}
	return dates
}
