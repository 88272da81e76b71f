package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCacheTTL = 24 * time.Hour

// CacheConfig controls the two-tier vector cache.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	MaxEntries int           `mapstructure:"max-entries"`
	RedisURL   string        `mapstructure:"redis-url"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// Cached wraps an Encoder with an in-memory cache and an optional Redis
// cache. Keys include the model name, so switching models never serves
// stale vectors.
type Cached struct {
	inner Encoder

	l1         sync.Map // key -> *cacheEntry
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
	logger     *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	vector    []float32
	expiresAt time.Time
}

// NewCached returns a caching Encoder. rdb may be nil to disable the L2 tier.
func NewCached(inner Encoder, cfg CacheConfig, rdb *redis.Client, logger *zap.Logger) *Cached {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		inner:      inner,
		rdb:        rdb,
		ttl:        ttl,
		maxEntries: cfg.MaxEntries,
		logger:     logger,
	}
}

// NewRedisClient connects to Redis for the L2 tier. Callers treat a failure
// as "run without L2".
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return rdb, nil
}

// CacheKey builds a deterministic cache key for a text under a model.
func CacheKey(model, text string) string {
	hash := sha256.Sum256([]byte(model + "|" + text))
	return fmt.Sprintf("emb:%x", hash[:16])
}

func (c *Cached) Model() string {
	return c.inner.Model()
}

func (c *Cached) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.inner.Model()
	vectors := make([][]float32, len(texts))

	// positions of each missing text, so duplicates are encoded once
	missing := make(map[string][]int)
	var order []string

	for i, text := range texts {
		key := CacheKey(model, text)
		if vector, ok := c.get(ctx, key); ok {
			vectors[i] = vector
			continue
		}
		if _, seen := missing[text]; !seen {
			order = append(order, text)
		}
		missing[text] = append(missing[text], i)
	}

	if len(order) == 0 {
		return vectors, nil
	}

	encoded, err := c.inner.Encode(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(encoded) != len(order) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(encoded), len(order))
	}

	for j, text := range order {
		c.set(ctx, CacheKey(model, text), encoded[j])
		for _, i := range missing[text] {
			vectors[i] = encoded[j]
		}
	}

	c.logger.Debug("embedding cache",
		zap.Int("requested", len(texts)),
		zap.Int("encoded", len(order)),
	)

	return vectors, nil
}

// Stats returns cache hit and miss counters.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cached) get(ctx context.Context, key string) ([]float32, bool) {
	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			c.hits.Add(1)
			return entry.vector, true
		}
		c.l1.Delete(key)
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var vector []float32
			if json.Unmarshal(data, &vector) == nil && len(vector) > 0 {
				c.hits.Add(1)
				c.storeL1(key, vector)
				return vector, true
			}
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Debug("embedding cache: L2 get failed", zap.Error(err))
		}
	}

	c.misses.Add(1)
	return nil, false
}

func (c *Cached) set(ctx context.Context, key string, vector []float32) {
	c.storeL1(key, vector)

	if c.rdb == nil {
		return
	}

	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug("embedding cache: L2 set failed", zap.Error(err))
	}
}

func (c *Cached) storeL1(key string, vector []float32) {
	c.evictIfNeeded()
	c.l1.Store(key, &cacheEntry{vector: vector, expiresAt: time.Now().Add(c.ttl)})
}

// evictIfNeeded drops expired entries first, then the oldest ones, until the
// L1 tier is below maxEntries.
func (c *Cached) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := now.Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}
