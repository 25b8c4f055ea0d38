// Package vectorindex provides the similarity-index contract consumed by the
// matchmaking pipeline, a Pinecone REST adapter, and an in-memory index used
// in tests and local development.
package vectorindex

import (
	"context"
	"errors"
)

// ErrIndex is the base error for all similarity-index failures. Callers can
// match it with errors.Is without caring which adapter produced it.
var ErrIndex = errors.New("vector index failure")

// Match is one similarity hit returned by a search.
type Match struct {
	// ID is the indexed record id (player id here).
	ID string

	// Similarity is the cosine similarity in [0, 1].
	Similarity float64

	// Metadata is whatever was attached at upsert time.
	Metadata map[string]any
}

// EloFilter restricts a search to records whose elo metadata lies within
// [Min, Max]. Only applied when both bounds are meaningful.
type EloFilter struct {
	Min int
	Max int
}

// Vector is one record to upsert.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Index is the similarity-index contract. Search is the only operation the
// ranking pipeline uses; Upsert and DeleteAll serve the indexing job.
type Index interface {
	// Search returns up to topK nearest matches for the query vector,
	// most similar first. filter may be nil.
	Search(ctx context.Context, vector []float32, topK int, filter *EloFilter) ([]Match, error)

	// Upsert inserts or replaces records.
	Upsert(ctx context.Context, vectors []Vector) error

	// DeleteAll removes every record from the index.
	DeleteAll(ctx context.Context) error
}
