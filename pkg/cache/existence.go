// Package cache keeps hints about which exchanges are known to exist on the broker.
//
// A cached entry is only a hint: it may outlive the exchange it describes, and a
// missing entry means "unknown", never "does not exist".
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/zoff-tech/go-databroker/pkg/config"
)

// ExistenceCache maps exchange names to an "exists" flag. Entries expire after
// an idle period; once the size limit is reached the least recently accessed
// entry is evicted. Safe for concurrent use.
type ExistenceCache struct {
	items *ttlcache.Cache[string, bool]
	idle  time.Duration
}

// New builds an ExistenceCache from settings, falling back to the defaults of
// 1000 entries and 30 minutes idle expiry for zero values.
func New(cfg config.CacheSettings) *ExistenceCache {
	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = config.DefaultCacheMaxSize
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = config.DefaultCacheIdleTimeout
	}

	// touch on hit is left enabled so reads refresh the idle timer
	items := ttlcache.New[string, bool](
		ttlcache.WithTTL[string, bool](idle),
		ttlcache.WithCapacity[string, bool](maxSize),
	)
	return &ExistenceCache{items: items, idle: idle}
}

// Start runs the expired-entry cleanup loop until Stop is called. Expired
// entries are never returned by Get even when the loop is not running.
func (c *ExistenceCache) Start() {
	c.items.Start()
}

func (c *ExistenceCache) Stop() {
	c.items.Stop()
}

// Get returns the cached flag for exchange and whether an entry was present.
func (c *ExistenceCache) Get(exchange string) (exists bool, ok bool) {
	item := c.items.Get(exchange)
	if item == nil {
		return false, false
	}
	return item.Value(), true
}

func (c *ExistenceCache) Put(exchange string, exists bool) {
	c.items.Set(exchange, exists, ttlcache.DefaultTTL)
}

func (c *ExistenceCache) Invalidate(exchange string) {
	c.items.Delete(exchange)
}

func (c *ExistenceCache) Len() int {
	return c.items.Len()
}

// TTL reports the idle expiry applied to entries.
func (c *ExistenceCache) TTL() time.Duration {
	return c.idle
}
