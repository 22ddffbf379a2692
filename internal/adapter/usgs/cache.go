package usgs

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-explorer/internal/cache"
	"github.com/couchcryptid/quake-explorer/internal/domain"
	"github.com/couchcryptid/quake-explorer/internal/observability"
)

// CachedFetcher wraps an EventFetcher with an in-memory LRU cache whose
// entries expire after a TTL. Cached slices are shared between callers and
// must be treated as read-only.
type CachedFetcher struct {
	inner   domain.EventFetcher
	cache   *cache.LRU[[]domain.RawFeature]
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner domain.EventFetcher, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   cache.New[[]domain.RawFeature](maxEntries, ttl, clock),
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchEvents(ctx context.Context, q domain.Query) ([]domain.RawFeature, error) {
	key := queryParams(q).Encode()
	if features, ok := c.cache.Get(key); ok {
		c.metrics.FetchCache.WithLabelValues("hit").Inc()
		return features, nil
	}
	c.metrics.FetchCache.WithLabelValues("miss").Inc()

	features, err := c.inner.FetchEvents(ctx, q)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so a feed that is still catching up is re-queried.
	if len(features) > 0 {
		c.cache.Put(key, features)
	}
	return features, nil
}
