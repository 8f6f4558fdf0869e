package cache

import (
	"sync"
	"time"
)

const defaultTTL = 5 * time.Second

// TTL is an in-process map whose entries expire after a fixed TTL. When
// maxEntries is reached, expired entries are purged first and then the entry
// closest to expiry is evicted.
type TTL[V any] struct {
	mu         sync.RWMutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	m          map[string]slot[V]
}

type slot[V any] struct {
	val V
	exp time.Time
}

// NewTTL builds a cache; ttl <= 0 means five seconds, maxEntries <= 0 means unbounded.
func NewTTL[V any](ttl time.Duration, maxEntries int) *TTL[V] {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TTL[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		m:          make(map[string]slot[V]),
	}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	now := c.now()

	c.mu.RLock()
	s, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return zero, false
	}
	if now.After(s.exp) {
		c.mu.Lock()
		// a concurrent Set may have refreshed it meanwhile
		if cur, ok := c.m[key]; ok && now.After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return s.val, true
}

func (c *TTL[V]) Set(key string, val V) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.m[key]; !exists && c.maxEntries > 0 && len(c.m) >= c.maxEntries {
		c.makeRoomLocked(now)
	}
	c.m[key] = slot[V]{val: val, exp: now.Add(c.ttl)}
}

func (c *TTL[V]) makeRoomLocked(now time.Time) {
	if c.purgeLocked(now) > 0 {
		return
	}

	var (
		victim string
		soon   time.Time
	)
	for k, s := range c.m {
		if victim == "" || s.exp.Before(soon) {
			victim, soon = k, s.exp
		}
	}
	delete(c.m, victim)
}

func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// PurgeExpired drops every expired entry and returns how many were removed.
func (c *TTL[V]) PurgeExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(now)
}

func (c *TTL[V]) purgeLocked(now time.Time) int {
	removed := 0
	for k, s := range c.m {
		if now.After(s.exp) {
			delete(c.m, k)
			removed++
		}
	}
	return removed
}

func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
