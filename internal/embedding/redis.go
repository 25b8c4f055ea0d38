package embedding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL bounds how long vectors live in the shared tier.
const DefaultRedisTTL = 24 * time.Hour

// redisKeyPrefix namespaces embedding keys in a shared Redis instance.
const redisKeyPrefix = "embed:"

// RedisStore is a shared embedding cache tier backed by Redis. Vectors are
// CBOR-encoded; entries expire after a TTL so the tier stays bounded.
//
// All failures are treated as cache misses and logged at warn level: a
// degraded Redis must never fail a pipeline run.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore creates a Redis-backed cache tier. A non-positive ttl falls
// back to DefaultRedisTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// Get returns the vector stored under key, or ok=false on any miss or error.
func (s *RedisStore) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("embedding redis get failed", "error", err)
		}
		return nil, false
	}

	var vector []float32
	if err := cbor.Unmarshal(data, &vector); err != nil {
		s.logger.Warn("embedding redis entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return vector, true
}

// Set stores the vector under key with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, key string, vector []float32) {
	data, err := cbor.Marshal(vector)
	if err != nil {
		s.logger.Warn("embedding cbor encode failed", "error", err)
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("embedding redis set failed", "error", err)
	}
}
