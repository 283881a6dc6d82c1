package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// NewRedisClient parses the URL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// cachedFrequency represents a cached frequency result with metadata
type cachedFrequency struct {
	Data      domain.FrequencyResult `json:"data"`
	CachedAt  time.Time              `json:"cached_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// RedisCachedSource shares LocusSource answers across processes through Redis.
// Redis failures are logged and fall through to the wrapped source.
type RedisCachedSource struct {
	next   domain.LocusSource
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger
}

// NewRedisCachedSource wraps next with a Redis cache.
func NewRedisCachedSource(next domain.LocusSource, client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCachedSource {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCachedSource{
		next:   next,
		redis:  client,
		ttl:    ttl,
		prefix: "vhl:frequency:",
		logger: logger,
	}
}

// Name implements domain.LocusSource.
func (c *RedisCachedSource) Name() string {
	return c.next.Name()
}

// Query implements domain.LocusSource.
func (c *RedisCachedSource) Query(ctx context.Context, locus domain.Locus) (*domain.FrequencyResult, error) {
	key := c.key(locus)

	if cached, found := c.get(ctx, key); found {
		return cached, nil
	}

	result, err := c.next.Query(ctx, locus)
	if err != nil || result == nil || !result.Resolved() {
		return result, err
	}

	if err := c.set(ctx, key, *result); err != nil {
		c.logger.WithFields(logrus.Fields{
			"key":    key,
			"source": c.Name(),
		}).WithError(err).Warn("Failed to cache frequency result")
	}
	return result, nil
}

func (c *RedisCachedSource) get(ctx context.Context, key string) (*domain.FrequencyResult, bool) {
	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false // Cache miss
	}
	if err != nil {
		c.logger.WithField("key", key).WithError(err).Warn("Failed to read frequency cache")
		return nil, false
	}

	var cached cachedFrequency
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false
	}
	return &cached.Data, true
}

func (c *RedisCachedSource) set(ctx context.Context, key string, result domain.FrequencyResult) error {
	now := time.Now()
	jsonData, err := json.Marshal(cachedFrequency{
		Data:      result,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal frequency cache data: %w", err)
	}
	return c.redis.Set(ctx, key, jsonData, c.ttl).Err()
}

// Invalidate removes the cached entry for a locus.
func (c *RedisCachedSource) Invalidate(ctx context.Context, locus domain.Locus) error {
	return c.redis.Del(ctx, c.key(locus)).Err()
}

func (c *RedisCachedSource) key(locus domain.Locus) string {
	return fmt.Sprintf("%s%s:%s", c.prefix, c.next.Name(), locus.ID())
}

var _ domain.LocusSource = (*RedisCachedSource)(nil)
