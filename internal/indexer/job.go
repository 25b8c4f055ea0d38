// Package indexer provides the batch job that keeps the vector index in
// sync with the player store: every player is rendered to description text,
// embedded, and upserted with its search metadata.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchpoint-app/matchpoint/internal/describe"
	"github.com/matchpoint-app/matchpoint/internal/embedding"
	"github.com/matchpoint-app/matchpoint/internal/geo"
	"github.com/matchpoint-app/matchpoint/internal/player"
	"github.com/matchpoint-app/matchpoint/internal/tracing"
	"github.com/matchpoint-app/matchpoint/internal/vectorindex"
)

// Metadata keys attached to every upserted vector.
const (
	MetaElo     = "elo"
	MetaZone    = "zone"
	MetaGeohash = "geohash"
	MetaFormat  = "format"
)

// Config configures an indexing job.
type Config struct {
	// Model is the embedding model name used for cache keys and requests.
	Model string
	// BatchSize bounds each embedding and upsert batch.
	BatchSize int
	// Reset wipes the index before writing.
	Reset bool
	// Logger for job activity.
	Logger *slog.Logger
	// Metrics for run tracking.
	Metrics *Metrics
}

// Job performs one full reindex of the player store.
type Job struct {
	players player.Repository
	cache   *embedding.Cache
	index   vectorindex.Index
	config  Config
}

// NewJob creates an indexing job over the given collaborators.
func NewJob(players player.Repository, cache *embedding.Cache, index vectorindex.Index, config Config) *Job {
	if config.Model == "" {
		config.Model = embedding.DefaultModel
	}
	if config.BatchSize <= 0 || config.BatchSize > embedding.MaxProviderBatch {
		config.BatchSize = embedding.MaxProviderBatch
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Job{players: players, cache: cache, index: index, config: config}
}

// Stats summarizes one run.
type Stats struct {
	Listed   int
	Indexed  int
	Skipped  int
	Duration time.Duration
}

// Run lists all players, embeds their descriptions, and upserts them into
// the index. Players without a location are skipped.
func (j *Job) Run(ctx context.Context) (*Stats, error) {
	ctx, finish := tracing.StartSpan(ctx, "indexer.Run")
	start := time.Now()
	if j.config.Metrics != nil {
		j.config.Metrics.runs.Inc()
	}

	stats, err := j.run(ctx)
	finish(err)

	if j.config.Metrics != nil {
		j.config.Metrics.runDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			j.config.Metrics.runFailures.Inc()
		}
	}
	if stats != nil {
		stats.Duration = time.Since(start)
	}
	return stats, err
}

func (j *Job) run(ctx context.Context) (*Stats, error) {
	if j.config.Reset {
		if err := j.index.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("reset index: %w", err)
		}
		j.config.Logger.Info("index reset")
	}

	all, err := j.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	stats := &Stats{Listed: len(all)}
	indexable := make([]*player.Player, 0, len(all))
	for _, p := range all {
		if p.Location == nil {
			stats.Skipped++
			if j.config.Metrics != nil {
				j.config.Metrics.playersSkipped.Inc()
			}
			j.config.Logger.Warn("player skipped, no location",
				slog.String("player_id", p.ID))
			continue
		}
		indexable = append(indexable, p)
	}
	if len(indexable) == 0 {
		j.config.Logger.Info("nothing to index",
			slog.Int("listed", stats.Listed),
			slog.Int("skipped", stats.Skipped))
		return stats, nil
	}

	texts := make([]string, len(indexable))
	for i, p := range indexable {
		texts[i] = describe.PlayerText(p)
	}
	vectors, err := j.cache.GetOrComputeBatch(ctx, texts, j.config.Model, j.config.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("embed players: %w", err)
	}

	records := make([]vectorindex.Vector, len(indexable))
	for i, p := range indexable {
		records[i] = vectorindex.Vector{
			ID:     p.ID,
			Values: vectors[i],
			Metadata: map[string]any{
				MetaElo:     p.Elo,
				MetaZone:    p.Location.Zone,
				MetaGeohash: geo.ZoneKey(p.Location.Lat, p.Location.Lon),
				MetaFormat:  describe.FormatVersion,
			},
		}
	}

	for start := 0; start < len(records); start += j.config.BatchSize {
		end := start + j.config.BatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := j.index.Upsert(ctx, records[start:end]); err != nil {
			return stats, fmt.Errorf("upsert players %d-%d: %w", start, end-1, err)
		}
		stats.Indexed += end - start
		if j.config.Metrics != nil {
			j.config.Metrics.playersIndexed.Add(float64(end - start))
		}
	}

	j.config.Logger.Info("reindex complete",
		slog.Int("listed", stats.Listed),
		slog.Int("indexed", stats.Indexed),
		slog.Int("skipped", stats.Skipped))
	return stats, nil
}
