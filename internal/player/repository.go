package player

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrRepository wraps failures of the backing player store so callers can
// tell a repository outage apart from other pipeline failures.
var ErrRepository = errors.New("player repository unavailable")

// Repository defines read access to player records for the matchmaking
// pipeline and the batch indexer.
type Repository interface {
	// GetByIDs retrieves the players matching the given IDs. Unknown IDs
	// are skipped, not errors; the result carries only found players.
	GetByIDs(ctx context.Context, ids []string) ([]*Player, error)

	// List retrieves all players ordered by ID, for full reindex runs.
	List(ctx context.Context) ([]*Player, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	players map[string]*Player
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{players: make(map[string]*Player)}
}

// Put inserts or replaces a player record.
func (r *InMemoryRepository) Put(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	r.players[p.ID] = &cp
}

// GetByIDs retrieves the players matching the given IDs, skipping unknowns.
func (r *InMemoryRepository) GetByIDs(_ context.Context, ids []string) ([]*Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make([]*Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.players[id]; ok {
			cp := *p
			found = append(found, &cp)
		}
	}
	return found, nil
}

// List retrieves all players ordered by ID.
func (r *InMemoryRepository) List(_ context.Context) ([]*Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}
