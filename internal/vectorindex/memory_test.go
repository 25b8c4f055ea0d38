package vectorindex

import (
	"context"
	"math"
	"testing"
)

func seedIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	err := idx.Upsert(context.Background(), []Vector{
		{ID: "aligned", Values: []float32{1, 0}, Metadata: map[string]any{"elo": 1500}},
		{ID: "diagonal", Values: []float32{1, 1}, Metadata: map[string]any{"elo": 1700}},
		{ID: "orthogonal", Values: []float32{0, 1}, Metadata: map[string]any{"elo": 1300}},
		{ID: "untagged", Values: []float32{1, 0.1}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return idx
}

// TestMemorySearchOrdering tests descending cosine order.
func TestMemorySearchOrdering(t *testing.T) {
	idx := seedIndex(t)

	matches, err := idx.Search(context.Background(), []float32{1, 0}, 0, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 4 {
		t.Fatalf("expected 4 matches, got %d", len(matches))
	}
	if matches[0].ID != "aligned" {
		t.Errorf("expected aligned first, got %s", matches[0].ID)
	}
	if matches[3].ID != "orthogonal" {
		t.Errorf("expected orthogonal last, got %s", matches[3].ID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Errorf("matches not sorted at %d: %+v", i, matches)
		}
	}
	if math.Abs(matches[0].Similarity-1.0) > 1e-9 {
		t.Errorf("identical vectors should score 1.0, got %f", matches[0].Similarity)
	}
	if matches[2].ID != "diagonal" || math.Abs(matches[2].Similarity-math.Sqrt2/2) > 1e-9 {
		t.Errorf("unexpected third match: %+v", matches[2])
	}
}

// TestMemorySearchTopK tests truncation.
func TestMemorySearchTopK(t *testing.T) {
	idx := seedIndex(t)

	matches, err := idx.Search(context.Background(), []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(matches))
	}
}

// TestMemorySearchEloFilter tests that the filter keeps in-range records
// and drops records without a numeric elo.
func TestMemorySearchEloFilter(t *testing.T) {
	idx := seedIndex(t)

	matches, err := idx.Search(context.Background(), []float32{1, 0}, 0,
		&EloFilter{Min: 1400, Max: 1750})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(matches), matches)
	}
	for _, m := range matches {
		if m.ID == "orthogonal" || m.ID == "untagged" {
			t.Errorf("filter should have excluded %s", m.ID)
		}
	}
}

// TestMemoryUpsertReplaces tests that upserting an existing ID overwrites.
func TestMemoryUpsertReplaces(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()

	err := idx.Upsert(ctx, []Vector{
		{ID: "aligned", Values: []float32{0, 1}, Metadata: map[string]any{"elo": 1500}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := idx.Len(); got != 4 {
		t.Errorf("expected 4 records after replace, got %d", got)
	}

	matches, err := idx.Search(ctx, []float32{0, 1}, 1, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if matches[0].Similarity != 1.0 || (matches[0].ID != "aligned" && matches[0].ID != "orthogonal") {
		t.Errorf("replaced vector not searchable: %+v", matches[0])
	}
}

// TestMemoryDeleteAll tests that the index empties.
func TestMemoryDeleteAll(t *testing.T) {
	idx := seedIndex(t)

	if err := idx.DeleteAll(context.Background()); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if got := idx.Len(); got != 0 {
		t.Errorf("expected empty index, got %d records", got)
	}
}

// TestCosineEdgeCases tests degenerate inputs.
func TestCosineEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"empty", nil, nil, 0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 0}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosine() = %f, want %f", got, tt.want)
			}
		})
	}
}
