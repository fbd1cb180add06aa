package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// Cache is a time-bounded key/value store. A miss is a normal result, not an error.
type Cache[V any] interface {
	Get(key string) (V, bool)
	// Put stores value under key for ttl. A non-positive ttl uses the cache default.
	Put(key string, value V, ttl time.Duration)
	Invalidate(key string)
	Clear()
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// LRU is a capacity bounded cache with per-entry expiry. Expired entries are
// dropped when read; capacity eviction removes the least recently used key.
// It is safe for concurrent use.
type LRU[V any] struct {
	mu         sync.Mutex
	store      *expirable.LRU[string, entry[V]]
	defaultTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewLRU[V any](size int, defaultTTL time.Duration, logger *zap.Logger) *LRU[V] {
	c := &LRU[V]{
		defaultTTL: defaultTTL,
		now:        time.Now,
		logger:     logger.Named("cache"),
	}
	// a zero ttl disables the store's own expiry and its cleanup goroutine,
	// expiry is tracked per entry instead
	c.store = expirable.NewLRU[string, entry[V]](size, c.onEvict, 0)
	return c
}

func (c *LRU[V]) onEvict(key string, _ entry[V]) {
	c.logger.Debug("cache entry removed", zap.String("key", key))
}

func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.store.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().Before(e.expiresAt) {
		return e.value, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// a concurrent Put may have refreshed the key since the read above
	if cur, ok := c.store.Peek(key); ok && !c.now().Before(cur.expiresAt) {
		c.store.Remove(key)
	}
	return zero, false
}

func (c *LRU[V]) Put(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Add(key, entry[V]{value: value, expiresAt: c.now().Add(ttl)})
}

func (c *LRU[V]) Invalidate(key string) {
	c.store.Remove(key)
}

func (c *LRU[V]) Clear() {
	c.store.Purge()
}

// Len counts stored entries, including expired ones not yet read
func (c *LRU[V]) Len() int {
	return c.store.Len()
}
