// Package cache provides a bounded, TTL-expiring key/value cache with
// insertion-order eviction. One instance is constructed per process and
// injected into the services that need memoised results.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size        int   `json:"size"`
	Capacity    int   `json:"capacity"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	order *list.List // front = oldest insertion
	items map[string]*list.Element

	hits, misses, evictions, expirations int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache holding at most capacity entries, each living for ttl.
// A non-positive capacity is treated as 1.
func New(capacity int, ttl time.Duration, opts ...Option) *Cache {
	if capacity < 1 {
		capacity = 1
	}

	c := &Cache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the value stored under key if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := el.Value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.remove(el)
		c.expirations++
		c.misses++

		return nil, false
	}

	c.hits++

	return e.value, true
}

// Set stores value under key. Overwriting a key refreshes its TTL and moves
// it to the newest position. When full, the oldest entry is evicted.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToBack(el)

		return
	}

	for c.order.Len() >= c.capacity {
		c.remove(c.order.Front())
		c.evictions++
	}

	c.items[key] = c.order.PushBack(&entry{key: key, value: value, expiresAt: expiresAt})
}

// Invalidate removes key. It reports whether the key was present.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}

	c.remove(el)

	return true
}

// InvalidatePrefix removes every key starting with prefix and returns how many were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int

	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.remove(el)
			n++
		}
	}

	return n
}

// Clear drops all entries and resets counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	clear(c.items)
	c.hits, c.misses, c.evictions, c.expirations = 0, 0, 0, 0
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:        c.order.Len(),
		Capacity:    c.capacity,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

func (c *Cache) remove(el *list.Element) {
	e := c.order.Remove(el).(*entry)
	delete(c.items, e.key)
}
