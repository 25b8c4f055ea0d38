package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matchpoint-app/matchpoint/internal/embedding"
	"github.com/matchpoint-app/matchpoint/internal/match"
	"github.com/matchpoint-app/matchpoint/internal/player"
	"github.com/matchpoint-app/matchpoint/internal/scoring"
	"github.com/matchpoint-app/matchpoint/internal/vectorindex"
)

// staticGateway returns the same vector for every text. Honors context
// cancellation like a real HTTP gateway would.
type staticGateway struct {
	vector []float32
	calls  int
}

func (g *staticGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.calls++
	return g.vector, nil
}

func (g *staticGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = g.vector
	}
	return out, nil
}

// failingRepo simulates a player store outage.
type failingRepo struct{}

func (failingRepo) GetByIDs(context.Context, []string) ([]*player.Player, error) {
	return nil, fmt.Errorf("%w: connection refused", player.ErrRepository)
}

func (failingRepo) List(context.Context) ([]*player.Player, error) {
	return nil, fmt.Errorf("%w: connection refused", player.ErrRepository)
}

// failingIndex always fails searches.
type failingIndex struct{}

func (failingIndex) Search(context.Context, []float32, int, *vectorindex.EloFilter) ([]vectorindex.Match, error) {
	return nil, fmt.Errorf("query: %w", vectorindex.ErrIndex)
}
func (failingIndex) Upsert(context.Context, []vectorindex.Vector) error { return nil }
func (failingIndex) DeleteAll(context.Context) error                    { return nil }

func validRequest() *match.Request {
	return &match.Request{
		MatchID:          "m-100",
		Categories:       []player.Category{player.CategoryFifth, player.CategorySixth},
		EloRange:         match.Range{Min: 1300, Max: 1700},
		GenderPreference: match.PreferMixed,
		RequiredPlayers:  1,
		Location:         player.Location{Lat: -34.60, Lon: -58.38, Zone: "Palermo"},
		MatchTime:        "18:00",
		RequiredMinutes:  90,
	}
}

func testPlayer(id string, elo int, latOffset float64) *player.Player {
	return &player.Player{
		ID:             id,
		Name:           id,
		Elo:            elo,
		Age:            30,
		Gender:         player.GenderFemale,
		Category:       player.CategoryFifth,
		Positions:      []player.Position{player.PositionForehand},
		Location:       &player.Location{Lat: -34.60 + latOffset, Lon: -58.38, Zone: "Palermo"},
		AcceptanceRate: 0.7,
		LastActiveDays: 5,
	}
}

// newTestPipeline wires a pipeline over in-memory collaborators. The static
// gateway embeds every request as [1, 0], so each indexed vector's cosine
// against it is under the test's control.
func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *vectorindex.MemoryIndex, *player.InMemoryRepository) {
	t.Helper()

	idx := vectorindex.NewMemoryIndex()
	repo := player.NewInMemoryRepository()
	engine, err := scoring.NewEngine(scoring.DefaultWeights())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	cache := embedding.NewCache(&staticGateway{vector: []float32{1, 0}})
	return NewPipeline(cache, "test-model", idx, repo, engine, opts...), idx, repo
}

func seedCandidate(t *testing.T, idx *vectorindex.MemoryIndex, repo *player.InMemoryRepository, p *player.Player, values []float32) {
	t.Helper()
	repo.Put(p)
	err := idx.Upsert(context.Background(), []vectorindex.Vector{
		{ID: p.ID, Values: values, Metadata: map[string]any{"elo": p.Elo, "zone": p.Location.Zone}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

// TestFindCandidatesRanking tests that output is sorted by descending score
// and driven by vector similarity.
func TestFindCandidatesRanking(t *testing.T) {
	pipe, idx, repo := newTestPipeline(t)

	seedCandidate(t, idx, repo, testPlayer("far", 1500, 0), []float32{0.2, 1})
	seedCandidate(t, idx, repo, testPlayer("close", 1500, 0), []float32{1, 0.05})
	seedCandidate(t, idx, repo, testPlayer("mid", 1500, 0), []float32{1, 0.6})

	candidates, err := pipe.FindCandidates(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[0].PlayerID != "close" || candidates[2].PlayerID != "far" {
		t.Errorf("unexpected order: %s, %s, %s",
			candidates[0].PlayerID, candidates[1].PlayerID, candidates[2].PlayerID)
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > candidates[i-1].Score {
			t.Errorf("scores not non-increasing at %d", i)
		}
	}
	if candidates[0].Metadata["zone"] != "Palermo" {
		t.Errorf("index metadata not carried: %+v", candidates[0].Metadata)
	}
}

// TestFindCandidatesEmptyIndex tests the typed no-candidates outcome.
func TestFindCandidatesEmptyIndex(t *testing.T) {
	pipe, _, _ := newTestPipeline(t)

	_, err := pipe.FindCandidates(context.Background(), validRequest())
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

// TestFindCandidatesEloFilter tests that out-of-range elo records never reach
// scoring.
func TestFindCandidatesEloFilter(t *testing.T) {
	pipe, idx, repo := newTestPipeline(t)

	seedCandidate(t, idx, repo, testPlayer("in-range", 1500, 0), []float32{1, 0})
	seedCandidate(t, idx, repo, testPlayer("too-strong", 1900, 0), []float32{1, 0})

	candidates, err := pipe.FindCandidates(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].PlayerID != "in-range" {
		t.Errorf("expected only in-range candidate, got %+v", candidates)
	}
}

// TestFindCandidatesResultLimit tests truncation to min(limit, retrieved).
func TestFindCandidatesResultLimit(t *testing.T) {
	pipe, idx, repo := newTestPipeline(t, WithResultLimit(3))

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("p%02d", i)
		seedCandidate(t, idx, repo, testPlayer(id, 1500, 0), []float32{1, float32(i) * 0.1})
	}

	candidates, err := pipe.FindCandidates(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(candidates) != 3 {
		t.Errorf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[0].PlayerID != "p00" {
		t.Errorf("expected best aligned vector first, got %s", candidates[0].PlayerID)
	}
}

// TestFindCandidatesDropsUnscorable tests that candidates without a usable
// location are dropped rather than failing the run.
func TestFindCandidatesDropsUnscorable(t *testing.T) {
	pipe, idx, repo := newTestPipeline(t)

	seedCandidate(t, idx, repo, testPlayer("scorable", 1500, 0), []float32{1, 0})

	noLocation := testPlayer("no-location", 1500, 0)
	noLocation.Location = nil
	repo.Put(noLocation)
	err := idx.Upsert(context.Background(), []vectorindex.Vector{
		{ID: "no-location", Values: []float32{1, 0}, Metadata: map[string]any{"elo": 1500}},
		{ID: "unknown-player", Values: []float32{1, 0}, Metadata: map[string]any{"elo": 1500}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	candidates, err := pipe.FindCandidates(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].PlayerID != "scorable" {
		t.Errorf("expected only the scorable candidate, got %+v", candidates)
	}
}

// TestFindCandidatesAllDropped tests that a run where every retrieved
// candidate is unscorable reports no candidates.
func TestFindCandidatesAllDropped(t *testing.T) {
	pipe, idx, _ := newTestPipeline(t)

	err := idx.Upsert(context.Background(), []vectorindex.Vector{
		{ID: "ghost", Values: []float32{1, 0}, Metadata: map[string]any{"elo": 1500}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	_, err = pipe.FindCandidates(context.Background(), validRequest())
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

// TestFindCandidatesValidation tests that an invalid request never reaches
// collaborators.
func TestFindCandidatesValidation(t *testing.T) {
	pipe, _, _ := newTestPipeline(t)

	req := validRequest()
	req.Categories = nil

	_, err := pipe.FindCandidates(context.Background(), req)
	if !errors.Is(err, match.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

// TestFindCandidatesContextCancelled tests cancellation propagation.
func TestFindCandidatesContextCancelled(t *testing.T) {
	pipe, _, _ := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipe.FindCandidates(ctx, validRequest())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestFindCandidatesIndexFailure tests that index errors keep their kind.
func TestFindCandidatesIndexFailure(t *testing.T) {
	repo := player.NewInMemoryRepository()
	engine, err := scoring.NewEngine(scoring.DefaultWeights())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	cache := embedding.NewCache(&staticGateway{vector: []float32{1, 0}})
	pipe := NewPipeline(cache, "test-model", failingIndex{}, repo, engine)

	_, err = pipe.FindCandidates(context.Background(), validRequest())
	if !errors.Is(err, vectorindex.ErrIndex) {
		t.Errorf("expected ErrIndex, got %v", err)
	}
	if !strings.Contains(err.Error(), "index search") {
		t.Errorf("expected wrapped context in %q", err.Error())
	}
}

func TestFindCandidatesRepositoryFailure(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultWeights())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	idx := vectorindex.NewMemoryIndex()
	if err := idx.Upsert(context.Background(), []vectorindex.Vector{
		{ID: "c-1", Values: []float32{1, 0}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	cache := embedding.NewCache(&staticGateway{vector: []float32{1, 0}})
	pipe := NewPipeline(cache, "test-model", idx, failingRepo{}, engine)

	_, err = pipe.FindCandidates(context.Background(), validRequest())
	if !errors.Is(err, player.ErrRepository) {
		t.Errorf("expected ErrRepository, got %v", err)
	}
	if got := failureKind(err); got != "repository" {
		t.Errorf("failureKind() = %q, want repository", got)
	}
}

// TestFailureKind tests the metric label mapping.
func TestFailureKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", fmt.Errorf("bad: %w", match.ErrValidation), "validation"},
		{"no candidates", fmt.Errorf("m: %w", ErrNoCandidates), "no_candidates"},
		{"rate limited", fmt.Errorf("embed: %w", embedding.ErrRateLimited), "rate_limited"},
		{"provider", fmt.Errorf("embed: %w", embedding.ErrProvider), "embedding"},
		{"index", fmt.Errorf("search: %w", vectorindex.ErrIndex), "index"},
		{"repository", fmt.Errorf("fetch players: %w", player.ErrRepository), "repository"},
		{"cancelled", context.Canceled, "cancelled"},
		{"unknown", errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureKind(tt.err); got != tt.want {
				t.Errorf("failureKind() = %q, want %q", got, tt.want)
			}
		})
	}
}
