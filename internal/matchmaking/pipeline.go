// Package matchmaking runs the candidate search pipeline: a match request is
// rendered to text, embedded, matched against the vector index, enriched from
// the player store, and scored into a ranked candidate list.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/matchpoint-app/matchpoint/internal/describe"
	"github.com/matchpoint-app/matchpoint/internal/embedding"
	"github.com/matchpoint-app/matchpoint/internal/match"
	"github.com/matchpoint-app/matchpoint/internal/player"
	"github.com/matchpoint-app/matchpoint/internal/scoring"
	"github.com/matchpoint-app/matchpoint/internal/tracing"
	"github.com/matchpoint-app/matchpoint/internal/vectorindex"
)

// ErrNoCandidates is returned when the index has no records matching the
// request. Distinguishable from collaborator failures.
var ErrNoCandidates = errors.New("no candidates found")

// Pipeline tuning defaults.
const (
	DefaultTopK         = 50
	DefaultResultLimit  = 20
	DefaultScoreWorkers = 8
)

// Defaults applied when a retrieved ID has no player record. Location is
// never defaulted; such candidates fail scoring and are dropped.
const (
	DefaultElo            = 1500
	DefaultAcceptanceRate = 0.5
	DefaultLastActiveDays = 30
)

// Pipeline orchestrates one candidate search end to end. Stateless between
// runs; safe for concurrent use.
type Pipeline struct {
	cache   *embedding.Cache
	model   string
	index   vectorindex.Index
	players player.Repository
	engine  *scoring.Engine

	topK        int
	resultLimit int
	workers     int

	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets how many index matches are retrieved per search.
func WithTopK(k int) Option {
	return func(p *Pipeline) { p.topK = k }
}

// WithResultLimit caps the number of ranked candidates returned.
func WithResultLimit(n int) Option {
	return func(p *Pipeline) { p.resultLimit = n }
}

// WithScoreWorkers bounds the scoring concurrency.
func WithScoreWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithPipelineMetrics attaches Prometheus metrics.
func WithPipelineMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a Pipeline over the given collaborators.
func NewPipeline(cache *embedding.Cache, model string, index vectorindex.Index, players player.Repository, engine *scoring.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		cache:       cache,
		model:       model,
		index:       index,
		players:     players,
		engine:      engine,
		topK:        DefaultTopK,
		resultLimit: DefaultResultLimit,
		workers:     DefaultScoreWorkers,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.topK <= 0 {
		p.topK = DefaultTopK
	}
	if p.resultLimit <= 0 {
		p.resultLimit = DefaultResultLimit
	}
	if p.workers <= 0 {
		p.workers = DefaultScoreWorkers
	}
	return p
}

// FindCandidates runs one search and returns candidates sorted by descending
// score, at most min(resultLimit, retrieved). Collaborator errors keep their
// kind through the returned chain; the pipeline never retries.
func (p *Pipeline) FindCandidates(ctx context.Context, req *match.Request) ([]match.Candidate, error) {
	ctx, finish := tracing.StartSpan(ctx, "matchmaking.FindCandidates")
	start := time.Now()

	candidates, err := p.findCandidates(ctx, req)
	finish(err)

	if p.metrics != nil {
		p.metrics.searches.Inc()
		p.metrics.searchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			p.metrics.searchFailures.WithLabelValues(failureKind(err)).Inc()
		}
	}
	return candidates, err
}

func (p *Pipeline) findCandidates(ctx context.Context, req *match.Request) ([]match.Candidate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	vector, err := p.cache.GetOrCompute(ctx, describe.RequestText(req), p.model)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}

	filter := &vectorindex.EloFilter{Min: req.EloRange.Min, Max: req.EloRange.Max}
	matches, err := p.index.Search(ctx, vector, p.topK, filter)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("match %s: %w", req.MatchID, ErrNoCandidates)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	records, err := p.players.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch players: %w", err)
	}
	byID := make(map[string]*player.Player, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	candidates, err := p.scoreAll(ctx, req, matches, byID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("match %s: %w", req.MatchID, ErrNoCandidates)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > p.resultLimit {
		candidates = candidates[:p.resultLimit]
	}

	p.logger.Info("candidate search complete",
		slog.String("match_id", req.MatchID),
		slog.Int("retrieved", len(matches)),
		slog.Int("returned", len(candidates)))
	return candidates, nil
}

// scoreAll scores every retrieved match with a bounded worker pool. Results
// land in pre-sized slots so retrieval order is preserved for the sort tie
// behavior. Candidates that fail scoring are dropped, not fatal.
func (p *Pipeline) scoreAll(ctx context.Context, req *match.Request, matches []vectorindex.Match, byID map[string]*player.Player) ([]match.Candidate, error) {
	slots := make([]*match.Candidate, len(matches))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := p.workers
	if workers > len(matches) {
		workers = len(matches)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				slots[i] = p.scoreOne(req, matches[i], byID)
			}
		}()
	}

	var cancelled error
dispatch:
	for i := range matches {
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, fmt.Errorf("scoring candidates: %w", cancelled)
	}

	candidates := make([]match.Candidate, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	return candidates, nil
}

// scoreOne merges one index match with its player record and scores it.
// Returns nil when the candidate cannot be scored.
func (p *Pipeline) scoreOne(req *match.Request, m vectorindex.Match, byID map[string]*player.Player) *match.Candidate {
	rec, found := byID[m.ID]
	if !found {
		rec = defaultRecord(m)
	}

	result, err := p.engine.Score(rec, req, m.Similarity)
	if err != nil {
		p.logger.Warn("candidate dropped",
			slog.String("match_id", req.MatchID),
			slog.String("player_id", m.ID),
			slog.String("error", err.Error()))
		if p.metrics != nil {
			p.metrics.candidatesDropped.Inc()
		}
		return nil
	}

	if p.metrics != nil {
		p.metrics.candidatesScored.Inc()
	}
	return &match.Candidate{
		PlayerID:   m.ID,
		Score:      result.Total,
		DistanceKm: result.DistanceKm,
		Reasons:    result.Reasons,
		Metadata:   m.Metadata,
	}
}

// defaultRecord builds a player snapshot for a retrieved ID with no stored
// record: elo from index metadata when present, documented defaults
// otherwise. Location stays nil, so scoring rejects the candidate unless a
// record exists.
func defaultRecord(m vectorindex.Match) *player.Player {
	rec := &player.Player{
		ID:             m.ID,
		Elo:            DefaultElo,
		AcceptanceRate: DefaultAcceptanceRate,
		LastActiveDays: DefaultLastActiveDays,
	}
	if raw, ok := m.Metadata["elo"]; ok {
		switch v := raw.(type) {
		case int:
			rec.Elo = v
		case float64:
			rec.Elo = int(v)
		}
	}
	return rec
}

// failureKind maps an error chain to a stable metric label.
func failureKind(err error) string {
	switch {
	case errors.Is(err, match.ErrValidation):
		return "validation"
	case errors.Is(err, ErrNoCandidates):
		return "no_candidates"
	case errors.Is(err, embedding.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, embedding.ErrInvalidInput),
		errors.Is(err, embedding.ErrUnavailable),
		errors.Is(err, embedding.ErrProvider):
		return "embedding"
	case errors.Is(err, vectorindex.ErrIndex):
		return "index"
	case errors.Is(err, player.ErrRepository):
		return "repository"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
