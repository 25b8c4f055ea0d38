package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory Index using exact cosine similarity.
// Thread-safe via RWMutex. Used in tests and local development; production
// runs against Pinecone.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]Vector
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: make(map[string]Vector)}
}

// Search returns up to topK matches sorted by descending cosine similarity.
func (m *MemoryIndex) Search(_ context.Context, vector []float32, topK int, filter *EloFilter) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.records))
	for _, rec := range m.records {
		if filter != nil && !eloInRange(rec.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{
			ID:         rec.ID,
			Similarity: cosine(vector, rec.Values),
			Metadata:   rec.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Upsert inserts or replaces records.
func (m *MemoryIndex) Upsert(_ context.Context, vectors []Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range vectors {
		m.records[v.ID] = v
	}
	return nil
}

// DeleteAll removes every record.
func (m *MemoryIndex) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[string]Vector)
	return nil
}

// Len returns the number of indexed records.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// eloInRange checks the elo metadata value against the filter. Records
// without a numeric elo are excluded when a filter is active, matching the
// behavior of a metadata filter in the real index.
func eloInRange(metadata map[string]any, filter *EloFilter) bool {
	raw, ok := metadata["elo"]
	if !ok {
		return false
	}

	var elo float64
	switch v := raw.(type) {
	case int:
		elo = float64(v)
	case float64:
		elo = v
	default:
		return false
	}
	return elo >= float64(filter.Min) && elo <= float64(filter.Max)
}

// cosine computes cosine similarity between two vectors; zero when either
// has no magnitude or lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
