package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/logging"
)

const (
	processBatchSize = 100
	numWorkers       = 5
)

// Source yields the episodes to copy. Implemented by db.Client (Mongo).
type Source interface {
	LoadEpisodes(ctx context.Context) ([]domain.Episode, error)
}

// Target receives copied episodes. Implemented by db.EpisodeTable.
type Target interface {
	ExistingURLsIn(ctx context.Context, urls []string) (map[string]bool, error)
	InsertEpisodes(ctx context.Context, episodes []domain.Episode) (int, error)
}

// Config wires the replication dependencies.
type Config struct {
	Source Source
	Target Target
	Logger *slog.Logger
}

// Replicator copies episodes from the document store into a SQL database.
type Replicator struct {
	source Source
	target Target
	logger *slog.Logger
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, errors.New("replication source is required")
	}
	if cfg.Target == nil {
		return nil, errors.New("replication target is required")
	}
	return &Replicator{
		source: cfg.Source,
		target: cfg.Target,
		logger: logging.OrDiscard(cfg.Logger),
	}, nil
}

// Stats summarizes one replication run.
type Stats struct {
	Processed int
	Inserted  int
}

// ReplicateEpisodes reads every episode from the source and inserts the ones
// whose URL the target does not have yet. Batches are processed in parallel;
// the first failing batch aborts the run.
func (r *Replicator) ReplicateEpisodes(ctx context.Context) (Stats, error) {
	episodes, err := r.source.LoadEpisodes(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load source episodes: %w", err)
	}

	r.logger.Info("loaded episodes from source", "count", len(episodes))

	stats, err := r.processBatches(ctx, episodes)
	if err != nil {
		return stats, err
	}

	r.logger.Info("replication complete", "processed", stats.Processed, "inserted", stats.Inserted)
	return stats, nil
}

type batchJob struct {
	batch []domain.Episode
	start int
	end   int
}

type batchResult struct {
	processed int
	inserted  int
	err       error
}

func (r *Replicator) processBatches(ctx context.Context, episodes []domain.Episode) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numBatches := (len(episodes) + processBatchSize - 1) / processBatchSize
	jobs := make(chan batchJob, numBatches)
	results := make(chan batchResult, numBatches)

	for start := 0; start < len(episodes); start += processBatchSize {
		end := min(start+processBatchSize, len(episodes))
		jobs <- batchJob{batch: episodes[start:end], start: start, end: end}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					results <- batchResult{err: ctx.Err()}
					continue
				}
				inserted, err := r.processBatch(ctx, job)
				results <- batchResult{processed: len(job.batch), inserted: inserted, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		stats    Stats
		firstErr error
	)
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
				cancel()
			}
			continue
		}
		stats.Processed += result.processed
		stats.Inserted += result.inserted
		if stats.Processed%1000 == 0 {
			r.logProgress(stats, len(episodes))
		}
	}
	if firstErr != nil {
		return stats, firstErr
	}

	r.logProgress(stats, len(episodes))
	return stats, nil
}

// processBatch checks which URLs of the batch exist in the target and inserts
// the rest.
func (r *Replicator) processBatch(ctx context.Context, job batchJob) (int, error) {
	log := r.logger.With("batch_start", job.start, "batch_end", job.end)

	existing, err := r.target.ExistingURLsIn(ctx, batchURLs(job.batch))
	if err != nil {
		return 0, fmt.Errorf("check existing URLs for batch [%d:%d]: %w", job.start, job.end, err)
	}

	toInsert := filterNewEpisodes(job.batch, existing)
	log.Debug("processing batch", "episodes", len(job.batch), "existing", len(existing), "new", len(toInsert))
	if len(toInsert) == 0 {
		return 0, nil
	}

	inserted, err := r.target.InsertEpisodes(ctx, toInsert)
	if err != nil {
		return 0, fmt.Errorf("insert batch [%d:%d]: %w", job.start, job.end, err)
	}
	return inserted, nil
}

func (r *Replicator) logProgress(stats Stats, total int) {
	r.logger.Info("replication progress",
		"processed", stats.Processed, "total", total, "inserted", stats.Inserted)
}

func batchURLs(batch []domain.Episode) []string {
	urls := make([]string, 0, len(batch))
	for _, ep := range batch {
		if ep.URL != "" {
			urls = append(urls, ep.URL)
		}
	}
	return urls
}

// filterNewEpisodes drops episodes whose URL is already stored and episodes
// without an ID.
func filterNewEpisodes(all []domain.Episode, existing map[string]bool) []domain.Episode {
	out := make([]domain.Episode, 0, len(all))
	for _, ep := range all {
		if ep.ID == "" {
			continue
		}
		if ep.URL != "" && existing[ep.URL] {
			continue
		}
		out = append(out, ep)
	}
	return out
}
