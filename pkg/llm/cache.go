package llm

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kccq-triage-server/internal/domain"
)

// Cache stores adapted question phrasings. The adaptation prompt is
// deterministic per (bank version, question id, audience), so cached text
// stays valid until the bank version changes.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// NewCache selects a Redis-backed cache when a URL is configured and falls
// back to an in-process LRU otherwise.
func NewCache(cfg domain.CacheConfig, logger *logrus.Logger) (Cache, error) {
	if cfg.RedisURL != "" {
		return newRedisCache(cfg, logger)
	}
	return newLRUCache(cfg)
}

// RedisCache caches adapted phrasings in Redis with a TTL.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *logrus.Logger
}

func newRedisCache(cfg domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisCache{redis: client, ttl: ttl, log: logger}, nil
}

// Get returns the cached value. Any Redis error is treated as a miss; the
// caller regenerates the phrasing.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores the value with the default TTL. Write failures are logged, not
// surfaced; the cache is advisory.
func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.redis.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Failed to cache adapted phrasing")
	}
}

// LRUCache is the in-process fallback when Redis is not configured.
type LRUCache struct {
	entries *lru.Cache[string, string]
}

func newLRUCache(cfg domain.CacheConfig) (*LRUCache, error) {
	size := cfg.LRUSize
	if size <= 0 {
		size = 256
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{entries: entries}, nil
}

// Get returns the cached value.
func (c *LRUCache) Get(_ context.Context, key string) (string, bool) {
	return c.entries.Get(key)
}

// Set stores the value.
func (c *LRUCache) Set(_ context.Context, key, value string) {
	c.entries.Add(key, value)
}
