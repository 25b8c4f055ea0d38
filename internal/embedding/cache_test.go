package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakeGateway returns deterministic vectors and counts calls.
type fakeGateway struct {
	mu         sync.Mutex
	embedCalls int
	batchCalls int
	fail       error
}

func (f *fakeGateway) vectorFor(text string) []float32 {
	return []float32{float32(len(text)), 0.5, 1.0}
}

func (f *fakeGateway) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.fail != nil {
		return nil, f.fail
	}
	return f.vectorFor(text), nil
}

func (f *fakeGateway) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func (f *fakeGateway) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls, f.batchCalls
}

// shortGateway returns fewer vectors than requested, simulating a broken provider.
type shortGateway struct{ fakeGateway }

func (s *shortGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.fakeGateway.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return out[:len(out)-1], nil
}

func vectorsEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestGetOrComputeCachesResult tests that a repeated call hits the cache and
// invokes the gateway at most once, returning identical vectors.
func TestGetOrComputeCachesResult(t *testing.T) {
	gw := &fakeGateway{}
	cache := NewCache(gw)
	ctx := context.Background()

	first, err := cache.GetOrCompute(ctx, "hello", DefaultModel)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	second, err := cache.GetOrCompute(ctx, "hello", DefaultModel)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}

	if embeds, _ := gw.calls(); embeds != 1 {
		t.Errorf("expected 1 gateway call, got %d", embeds)
	}
	if !vectorsEqual(first, second) {
		t.Errorf("expected identical vectors, got %v and %v", first, second)
	}
}

// TestCacheKeyIncludesModel tests that the same text under different models
// occupies different cache slots.
func TestCacheKeyIncludesModel(t *testing.T) {
	gw := &fakeGateway{}
	cache := NewCache(gw)
	ctx := context.Background()

	if _, err := cache.GetOrCompute(ctx, "hello", "model-a"); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if _, err := cache.GetOrCompute(ctx, "hello", "model-b"); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}

	if embeds, _ := gw.calls(); embeds != 2 {
		t.Errorf("expected 2 gateway calls for distinct models, got %d", embeds)
	}
}

// TestGetOrComputeBatchChunking tests that n texts with batch size m issue
// ceil(n/m) gateway batch calls on all-miss input, in input order.
func TestGetOrComputeBatchChunking(t *testing.T) {
	tests := []struct {
		n, m      int
		wantCalls int
	}{
		{n: 10, m: 3, wantCalls: 4},
		{n: 9, m: 3, wantCalls: 3},
		{n: 1, m: 100, wantCalls: 1},
		{n: 5, m: 1, wantCalls: 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d m=%d", tt.n, tt.m), func(t *testing.T) {
			gw := &fakeGateway{}
			cache := NewCache(gw)

			texts := make([]string, tt.n)
			for i := range texts {
				texts[i] = fmt.Sprintf("text-%02d", i)
			}

			vectors, err := cache.GetOrComputeBatch(context.Background(), texts, DefaultModel, tt.m)
			if err != nil {
				t.Fatalf("GetOrComputeBatch: %v", err)
			}

			if len(vectors) != tt.n {
				t.Fatalf("expected %d vectors, got %d", tt.n, len(vectors))
			}
			if _, batches := gw.calls(); batches != tt.wantCalls {
				t.Errorf("expected %d batch calls, got %d", tt.wantCalls, batches)
			}
			for i, v := range vectors {
				if want := gw.vectorFor(texts[i]); !vectorsEqual(v, want) {
					t.Errorf("vector %d out of order: got %v, want %v", i, v, want)
				}
			}
		})
	}
}

// TestGetOrComputeBatchPartialHits tests that cached texts are filled from
// the cache and only misses reach the gateway.
func TestGetOrComputeBatchPartialHits(t *testing.T) {
	gw := &fakeGateway{}
	cache := NewCache(gw)
	ctx := context.Background()

	// Warm two entries.
	if _, err := cache.GetOrCompute(ctx, "warm-a", DefaultModel); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if _, err := cache.GetOrCompute(ctx, "warm-b", DefaultModel); err != nil {
		t.Fatalf("warm: %v", err)
	}

	texts := []string{"cold-1", "warm-a", "cold-2", "warm-b", "cold-3"}
	vectors, err := cache.GetOrComputeBatch(ctx, texts, DefaultModel, 10)
	if err != nil {
		t.Fatalf("GetOrComputeBatch: %v", err)
	}

	// One batch call for the three cold texts only.
	if _, batches := gw.calls(); batches != 1 {
		t.Errorf("expected 1 batch call, got %d", batches)
	}
	for i, v := range vectors {
		if want := gw.vectorFor(texts[i]); !vectorsEqual(v, want) {
			t.Errorf("vector %d mismatch for %q", i, texts[i])
		}
	}

	// Fully warm input issues no gateway calls at all.
	_, before := gw.calls()
	if _, err := cache.GetOrComputeBatch(ctx, texts, DefaultModel, 2); err != nil {
		t.Fatalf("GetOrComputeBatch warm: %v", err)
	}
	if _, after := gw.calls(); after != before {
		t.Errorf("expected no extra batch calls, got %d", after-before)
	}
}

// TestGetOrComputeBatchCountMismatch tests the count-mismatch failure.
func TestGetOrComputeBatchCountMismatch(t *testing.T) {
	cache := NewCache(&shortGateway{})

	_, err := cache.GetOrComputeBatch(context.Background(),
		[]string{"a", "b", "c"}, DefaultModel, 10)
	if !errors.Is(err, ErrProvider) {
		t.Errorf("expected ErrProvider on count mismatch, got %v", err)
	}
}

// TestGetOrComputeBatchInvalidBatchSize tests batch size validation.
func TestGetOrComputeBatchInvalidBatchSize(t *testing.T) {
	cache := NewCache(&fakeGateway{})

	_, err := cache.GetOrComputeBatch(context.Background(), []string{"a"}, DefaultModel, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// TestCacheEviction tests the LRU capacity bound.
func TestCacheEviction(t *testing.T) {
	gw := &fakeGateway{}
	cache := NewCache(gw, WithCapacity(2))
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		if _, err := cache.GetOrCompute(ctx, text, DefaultModel); err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
	}

	if got := cache.Len(); got != 2 {
		t.Errorf("expected capacity-bound length 2, got %d", got)
	}

	// "a" was evicted, so it costs another gateway call; "c" is still hot.
	if _, err := cache.GetOrCompute(ctx, "c", DefaultModel); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if embeds, _ := gw.calls(); embeds != 3 {
		t.Errorf("expected 3 calls so far, got %d", embeds)
	}
	if _, err := cache.GetOrCompute(ctx, "a", DefaultModel); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if embeds, _ := gw.calls(); embeds != 4 {
		t.Errorf("expected recompute of evicted entry, got %d calls", embeds)
	}
}

// TestCacheLRUPromotion tests that a recent hit survives eviction.
func TestCacheLRUPromotion(t *testing.T) {
	gw := &fakeGateway{}
	cache := NewCache(gw, WithCapacity(2))
	ctx := context.Background()

	mustGet := func(text string) {
		t.Helper()
		if _, err := cache.GetOrCompute(ctx, text, DefaultModel); err != nil {
			t.Fatalf("GetOrCompute(%q): %v", text, err)
		}
	}

	mustGet("a")
	mustGet("b")
	mustGet("a") // promote "a"; next insert must evict "b"
	mustGet("c")
	mustGet("a")

	// 3 unique computes, no recompute of "a".
	if embeds, _ := gw.calls(); embeds != 3 {
		t.Errorf("expected 3 gateway calls, got %d", embeds)
	}
}

// TestGetOrComputeConcurrent tests that concurrent access is safe and
// produces correct vectors for every caller.
func TestGetOrComputeConcurrent(t *testing.T) {
	gw := &fakeGateway{}
	cache := NewCache(gw, WithCapacity(64))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				text := fmt.Sprintf("text-%d", i)
				vec, err := cache.GetOrCompute(ctx, text, DefaultModel)
				if err != nil {
					errs <- err
					return
				}
				if !vectorsEqual(vec, gw.vectorFor(text)) {
					errs <- fmt.Errorf("wrong vector for %q", text)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

// TestGatewayErrorPropagates tests that gateway failures surface unchanged.
func TestGatewayErrorPropagates(t *testing.T) {
	gw := &fakeGateway{fail: ErrRateLimited}
	cache := NewCache(gw)

	_, err := cache.GetOrCompute(context.Background(), "hello", DefaultModel)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}
