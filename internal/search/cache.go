package search

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

// CacheConfig sizes a Cached searcher.
type CacheConfig struct {
	// MaxEntries bounds the number of cached results. Default: 1000.
	MaxEntries int64
	// TTL is how long a result stays fresh. Default: 10m.
	TTL time.Duration
}

func (c *CacheConfig) defaults() {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
}

// Cached wraps a Searcher with a TTL cache. Concurrent lookups of the same
// query share one upstream call.
type Cached struct {
	next  Searcher
	ttl   time.Duration
	cache *ristretto.Cache
	group singleflight.Group
}

// NewCached wraps next.
func NewCached(next Searcher, cfg CacheConfig) (*Cached, error) {
	cfg.defaults()
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("search: creating cache: %w", err)
	}
	return &Cached{next: next, ttl: cfg.TTL, cache: cache}, nil
}

// Search implements Searcher.
func (c *Cached) Search(ctx context.Context, query string) (string, error) {
	if v, ok := c.cache.Get(query); ok {
		if s, ok := v.(string); ok {
			return s, nil
		}
	}

	v, err, _ := c.group.Do(query, func() (any, error) {
		res, err := c.next.Search(ctx, query)
		if err != nil {
			return "", err
		}
		c.cache.SetWithTTL(query, res, 1, c.ttl)
		c.cache.Wait()
		return res, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Close releases the cache's background goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}
