package external

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// CacheStats tracks hit and miss counts for a cache decorator.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// CachedSource keeps recent query results for a LocusSource in memory. Only
// successful answers are cached; errors always reach the next call.
type CachedSource struct {
	next   domain.LocusSource
	cache  *expirable.LRU[string, domain.FrequencyResult]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedSource wraps next with an LRU of at most size entries living for ttl.
func NewCachedSource(next domain.LocusSource, size int, ttl time.Duration) *CachedSource {
	if size <= 0 {
		size = 1000
	}
	return &CachedSource{
		next:  next,
		cache: expirable.NewLRU[string, domain.FrequencyResult](size, nil, ttl),
	}
}

// Name implements domain.LocusSource.
func (c *CachedSource) Name() string {
	return c.next.Name()
}

// Query implements domain.LocusSource.
func (c *CachedSource) Query(ctx context.Context, locus domain.Locus) (*domain.FrequencyResult, error) {
	key := locus.ID()
	if cached, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return &cached, nil
	}
	c.misses.Add(1)

	result, err := c.next.Query(ctx, locus)
	if err != nil || result == nil {
		return result, err
	}
	if result.Resolved() {
		c.cache.Add(key, *result)
	}
	return result, nil
}

// Invalidate drops one cached locus.
func (c *CachedSource) Invalidate(locus domain.Locus) {
	c.cache.Remove(locus.ID())
}

// Stats returns the cache counters.
func (c *CachedSource) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.cache.Len(),
	}
}

var _ domain.LocusSource = (*CachedSource)(nil)
