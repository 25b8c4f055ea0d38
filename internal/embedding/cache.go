package embedding

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultCacheCapacity bounds the in-process cache when no capacity is
// configured. The source system cached without bound, which grows forever
// under production traffic; an explicit LRU capacity fixes that.
const DefaultCacheCapacity = 4096

// RemoteStore is an optional shared cache tier consulted between the
// in-process LRU and the gateway. Misses and store failures must be
// non-fatal: a broken cache tier degrades to more gateway calls, never to a
// failed pipeline run.
type RemoteStore interface {
	// Get returns the vector for key, or ok=false on a miss.
	Get(ctx context.Context, key string) ([]float32, bool)

	// Set stores the vector under key.
	Set(ctx context.Context, key string, vector []float32)
}

// Cache memoizes gateway calls keyed by a content hash of (model, text).
//
// Safe for concurrent use. Two goroutines racing on the same uncached text
// may both call the gateway; last write wins, which is correct because
// recomputation is idempotent. Races are tolerated instead of serialized.
type Cache struct {
	gateway Gateway
	remote  RemoteStore
	metrics *Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

// cacheEntry is one LRU slot.
type cacheEntry struct {
	key    string
	vector []float32
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCapacity sets the in-process LRU capacity.
func WithCapacity(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithRemoteStore adds a shared cache tier between the LRU and the gateway.
func WithRemoteStore(s RemoteStore) CacheOption {
	return func(c *Cache) { c.remote = s }
}

// WithMetrics sets the metrics instance.
func WithMetrics(m *Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// WithCacheLogger sets the logger.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// NewCache creates a bounded cache in front of the given gateway.
func NewCache(gateway Gateway, opts ...CacheOption) *Cache {
	c := &Cache{
		gateway:  gateway,
		capacity: DefaultCacheCapacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		metrics:  NewMetrics(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey returns the content-addressed key for (model, text).
func CacheKey(text, model string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte("::"))
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns the embedding for text, consulting the LRU, then the
// remote tier, then the gateway. Computed vectors are written back to every
// tier.
func (c *Cache) GetOrCompute(ctx context.Context, text, model string) ([]float32, error) {
	key := CacheKey(text, model)

	if vec, ok := c.lookup(key); ok {
		c.metrics.cacheHits.Inc()
		return vec, nil
	}

	if c.remote != nil {
		if vec, ok := c.remote.Get(ctx, key); ok {
			c.metrics.cacheHits.Inc()
			c.store(key, vec)
			return vec, nil
		}
	}

	c.metrics.cacheMisses.Inc()
	c.metrics.gatewayCalls.Inc()
	vec, err := c.gateway.Embed(ctx, text)
	if err != nil {
		c.metrics.gatewayErrors.Inc()
		return nil, err
	}

	c.store(key, vec)
	if c.remote != nil {
		c.remote.Set(ctx, key, vec)
	}
	return vec, nil
}

// GetOrComputeBatch returns one embedding per text, in input order.
//
// Input is processed in chunks of at most maxBatchSize. Within each chunk,
// already-cached texts are filled from the cache and only the missing ones
// go to the gateway's batch call; returned vectors are written back into
// their original positions.
func (c *Cache) GetOrComputeBatch(ctx context.Context, texts []string, model string, maxBatchSize int) ([][]float32, error) {
	if maxBatchSize <= 0 {
		return nil, fmt.Errorf("%w: max batch size must be positive", ErrInvalidInput)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	result := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		if err := c.fillChunk(ctx, texts, model, result, start, end); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// fillChunk resolves result[start:end], separating cached texts from those
// that need a gateway call.
func (c *Cache) fillChunk(ctx context.Context, texts []string, model string, result [][]float32, start, end int) error {
	var missingTexts []string
	var missingPositions []int
	var missingKeys []string

	for i := start; i < end; i++ {
		key := CacheKey(texts[i], model)
		if vec, ok := c.lookup(key); ok {
			c.metrics.cacheHits.Inc()
			result[i] = vec
			continue
		}
		if c.remote != nil {
			if vec, ok := c.remote.Get(ctx, key); ok {
				c.metrics.cacheHits.Inc()
				c.store(key, vec)
				result[i] = vec
				continue
			}
		}
		c.metrics.cacheMisses.Inc()
		missingTexts = append(missingTexts, texts[i])
		missingPositions = append(missingPositions, i)
		missingKeys = append(missingKeys, key)
	}

	if len(missingTexts) == 0 {
		return nil
	}

	c.metrics.gatewayCalls.Inc()
	vectors, err := c.gateway.EmbedBatch(ctx, missingTexts)
	if err != nil {
		c.metrics.gatewayErrors.Inc()
		return err
	}
	if len(vectors) != len(missingTexts) {
		c.metrics.gatewayErrors.Inc()
		return fmt.Errorf("%w: requested %d embeddings, got %d",
			ErrProvider, len(missingTexts), len(vectors))
	}

	for j, vec := range vectors {
		c.store(missingKeys[j], vec)
		if c.remote != nil {
			c.remote.Set(ctx, missingKeys[j], vec)
		}
		result[missingPositions[j]] = vec
	}
	return nil
}

// lookup returns the cached vector for key and promotes it to most recently
// used.
func (c *Cache) lookup(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).vector, true
}

// store inserts or refreshes key, evicting the least recently used entry
// when over capacity.
func (c *Cache) store(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		// Last write wins on racing computations.
		elem.Value.(*cacheEntry).vector = vector
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, vector: vector})

	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.metrics.cacheEvictions.Inc()
	}
}

// Len returns the number of entries in the in-process cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
