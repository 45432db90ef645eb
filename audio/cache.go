package audio

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/redis"
)

// CacheEntry is the reusable part of a completed job.
type CacheEntry struct {
	ProcessedURL string  `json:"processed_url"`
	Title        string  `json:"title,omitempty"`
	DurationSec  float64 `json:"duration_sec,omitempty"`
}

// ReuseCache fronts the completed-job lookup with an in-process cache and
// an optional shared redis store.
type ReuseCache struct {
	local  *gocache.Cache
	remote *redis.TypedStore[CacheEntry]
	ttl    time.Duration
	log    *logger.Logger
}

// NewReuseCache creates a cache. remote may be nil.
func NewReuseCache(ttl time.Duration, remote *redis.TypedStore[CacheEntry], log *logger.Logger) *ReuseCache {
	return &ReuseCache{
		local:  gocache.New(ttl, 2*ttl),
		remote: remote,
		ttl:    ttl,
		log:    log,
	}
}

// Get looks key up locally, then in redis. Redis failures count as misses.
func (c *ReuseCache) Get(ctx context.Context, key string) (CacheEntry, bool) {
	if v, ok := c.local.Get(key); ok {
		return v.(CacheEntry), true
	}
	if c.remote == nil {
		return CacheEntry{}, false
	}
	entry, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		c.log.Warn("Reuse cache read failed", logger.Fields("key", key, logger.FieldError, err.Error()))
		return CacheEntry{}, false
	}
	if !ok {
		return CacheEntry{}, false
	}
	c.local.Set(key, entry, gocache.DefaultExpiration)
	return entry, true
}

// Set stores entry in both levels.
func (c *ReuseCache) Set(ctx context.Context, key string, entry CacheEntry) {
	c.local.Set(key, entry, gocache.DefaultExpiration)
	if c.remote == nil {
		return
	}
	if err := c.remote.Put(ctx, key, entry, c.ttl); err != nil {
		c.log.Warn("Reuse cache write failed", logger.Fields("key", key, logger.FieldError, err.Error()))
	}
}
