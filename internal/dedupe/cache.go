// ABOUTME: Thread-safe TTL cache for suppressing duplicate webhook deliveries.
// ABOUTME: Keys are platform event ids; check and mark are one atomic step.

package dedupe

import (
	"sync"
	"time"
)

// Cache tracks recently seen event ids so a redelivered event is
// acknowledged without being processed twice. Entries expire after the TTL
// and the cache is size-bounded, evicting the oldest entries first.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	order   []string // insertion order, oldest first; may hold stale keys
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
	now     func() time.Time
}

// New creates a cache with the given TTL and maximum entry count. A
// background goroutine sweeps expired entries until Close is called.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go c.sweepLoop()
	return c
}

// Seen atomically records the key and reports whether it was already
// present and unexpired. The single-call form avoids the check-then-mark
// race under concurrent deliveries of the same event.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if at, ok := c.seen[key]; ok && now.Sub(at) < c.ttl {
		return true
	}

	if _, exists := c.seen[key]; !exists {
		for len(c.seen) >= c.maxSize {
			c.evictOldestLocked()
		}
		c.order = append(c.order, key)
	}
	c.seen[key] = now
	return false
}

// Len reports the number of tracked keys, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// evictOldestLocked drops the oldest live entry. The order slice may carry
// keys already removed by the sweeper; those are skipped.
func (c *Cache) evictOldestLocked() {
	for len(c.order) > 0 {
		key := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.seen[key]; ok {
			delete(c.seen, key)
			return
		}
	}
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep removes expired entries and compacts the order slice.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, at := range c.seen {
		if now.Sub(at) >= c.ttl {
			delete(c.seen, key)
		}
	}

	live := c.order[:0]
	for _, key := range c.order {
		if _, ok := c.seen[key]; ok {
			live = append(live, key)
		}
	}
	c.order = live
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
