// Package cache provides a two-tier result cache for therapy abstractions.
// The engine is deterministic over its input snapshot, so a completed
// abstraction can be cached under a content hash of the input plus the engine
// and knowledge base versions; any change to either invalidates naturally.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
)

// ResultCache caches completed abstractions in an in-process LRU, with an
// optional shared Redis tier behind it. Both tiers are best-effort: a cache
// failure degrades to recomputation, never to a request failure.
type ResultCache struct {
	logger     *logrus.Logger
	memory     *lru.Cache[string, []byte]
	redis      *redis.Client
	defaultTTL time.Duration
}

// cachedAbstraction wraps the stored result with cache metadata.
type cachedAbstraction struct {
	Abstraction *domain.TherapyAbstraction `json:"abstraction"`
	CachedAt    time.Time                  `json:"cached_at"`
	ExpiresAt   time.Time                  `json:"expires_at"`
}

// New creates a result cache. Redis is attached only when the configuration
// carries a URL; the in-memory tier always exists.
func New(logger *logrus.Logger, config domain.CacheConfig) (*ResultCache, error) {
	size := config.MemorySize
	if size <= 0 {
		size = 1024
	}
	memory, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	c := &ResultCache{
		logger:     logger,
		memory:     memory,
		defaultTTL: config.DefaultTTL,
	}

	if config.RedisURL != "" {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts.PoolSize = config.PoolSize
		opts.PoolTimeout = config.PoolTimeout
		opts.MaxRetries = config.MaxRetries

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			// Redis being down must not block startup; the memory tier carries on.
			logger.WithError(err).Warn("Redis unavailable; result cache runs memory-only")
		} else {
			c.redis = client
		}
	}

	return c, nil
}

// Key derives the cache key for an input snapshot. The key covers the full
// input plus engine and knowledge base versions, so stale results cannot be
// served across a deploy.
func Key(input *domain.PatientTimeline, engineVersion, kbVersion string) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal timeline for cache key: %w", err)
	}
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(engineVersion))
	h.Write([]byte(kbVersion))
	return "abstraction:" + hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached abstraction. A miss returns (nil, false, nil); cache
// backend failures are logged and reported as misses.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.TherapyAbstraction, bool, error) {
	if data, ok := c.memory.Get(key); ok {
		if result := c.decode(key, data); result != nil {
			return result, true, nil
		}
	}

	if c.redis == nil {
		return nil, false, nil
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		c.logger.WithError(err).Warn("Redis get failed; treating as cache miss")
		return nil, false, nil
	}

	result := c.decode(key, []byte(val))
	if result == nil {
		return nil, false, nil
	}
	// Promote to the memory tier.
	c.memory.Add(key, []byte(val))
	return result, true, nil
}

// Set stores a completed abstraction in both tiers.
func (c *ResultCache) Set(ctx context.Context, key string, abstraction *domain.TherapyAbstraction, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := cachedAbstraction{
		Abstraction: abstraction,
		CachedAt:    time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(ttl),
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal abstraction for cache: %w", err)
	}

	c.memory.Add(key, data)

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
			c.logger.WithError(err).Warn("Redis set failed; memory tier retains the entry")
		}
	}
	return nil
}

// decode unmarshals a cached entry and enforces its expiry. Corrupted or
// expired entries are evicted and read as misses.
func (c *ResultCache) decode(key string, data []byte) *domain.TherapyAbstraction {
	var cached cachedAbstraction
	if err := json.Unmarshal(data, &cached); err != nil {
		c.memory.Remove(key)
		return nil
	}
	if time.Now().After(cached.ExpiresAt) {
		c.memory.Remove(key)
		if c.redis != nil {
			c.redis.Del(context.Background(), key)
		}
		return nil
	}
	return cached.Abstraction
}

// Close releases the Redis connection, if any.
func (c *ResultCache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
