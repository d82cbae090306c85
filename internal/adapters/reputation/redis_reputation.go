// Package reputation provides hash-reputation adapters: a Redis read-through
// cache in front of an upstream service and a static in-memory service for
// tests and demos.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aegismail/threat-engine/internal/ports"
	"github.com/go-redis/redis/v8"
)

const cacheKeyPrefix = "rep:"

// RedisCache is a read-through cache wrapping an upstream reputation
// service. Cache failures degrade to upstream lookups; upstream failures
// propagate so the sandbox layer can fail open.
type RedisCache struct {
	rdb      *redis.Client
	upstream ports.HashReputationService
	ttl      time.Duration
}

// NewRedisCache creates a caching reputation client
func NewRedisCache(rdb *redis.Client, upstream ports.HashReputationService, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, upstream: upstream, ttl: ttl}
}

// CheckHash looks a hash up in the cache first and falls back to the
// upstream service, caching the answer
func (c *RedisCache) CheckHash(ctx context.Context, hash string) (ports.ReputationResult, error) {
	key := cacheKeyPrefix + hash

	if cached, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var result ports.ReputationResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return result, nil
		}
		// Corrupt cache entry: drop it and fall through to upstream
		c.rdb.Del(ctx, key)
	}

	result, err := c.upstream.CheckHash(ctx, hash)
	if err != nil {
		return ports.ReputationResult{Verdict: ports.HashVerdictUnknown}, fmt.Errorf("reputation lookup: %w", err)
	}

	if payload, err := json.Marshal(result); err == nil {
		c.rdb.Set(ctx, key, payload, c.ttl)
	}
	return result, nil
}

// StaticService is an in-memory reputation source keyed by exact hash.
// Unknown hashes return a not-found unknown verdict.
type StaticService struct {
	entries map[string]ports.ReputationResult
}

// NewStaticService creates a reputation service over a fixed hash table
func NewStaticService(entries map[string]ports.ReputationResult) *StaticService {
	if entries == nil {
		entries = map[string]ports.ReputationResult{}
	}
	return &StaticService{entries: entries}
}

// CheckHash returns the stored verdict for a hash, or unknown
func (s *StaticService) CheckHash(ctx context.Context, hash string) (ports.ReputationResult, error) {
	if result, ok := s.entries[hash]; ok {
		return result, nil
	}
	return ports.ReputationResult{Found: false, Verdict: ports.HashVerdictUnknown}, nil
}
