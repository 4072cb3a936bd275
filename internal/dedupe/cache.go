// ABOUTME: Thread-safe TTL cache for suppressing duplicate inbound events
// ABOUTME: Size-bounded with insertion-order eviction via a doubly-linked list

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry stores the timestamp and list element for a cached key.
type entry struct {
	seenAt  time.Time
	element *list.Element
}

// Cache is a thread-safe, TTL-based, size-limited cache of seen event
// keys. Clients that resend an event after a flaky connection supply the
// same idempotency key, and the cache keeps the relay from processing it
// twice. A doubly-linked list maintains insertion order for O(1) eviction.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // keys in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a dedupe cache with the given TTL and maximum size.
// A background goroutine periodically removes expired entries.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// CheckAndMark atomically checks whether a key has been seen and marks
// it if not. Returns true for a duplicate, false if the key is new and
// now marked. The check and mark are one critical section, so two
// concurrent submissions of the same key can never both pass.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[key]; ok && time.Since(e.seenAt) < c.ttl {
		return true
	}

	c.markLocked(key)
	return false
}

// markLocked records a key. Must be called with mu held.
func (c *Cache) markLocked(key string) {
	now := time.Now()

	if e, exists := c.seen[key]; exists {
		e.seenAt = now
		c.order.MoveToBack(e.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.seen[key] = &entry{seenAt: now, element: elem}
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

// Len returns the number of keys currently tracked.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// cleanupLoop periodically drops expired entries until Close is called.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired walks from the oldest entry forward, stopping at the
// first unexpired one.
func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		key := front.Value.(string)
		e := c.seen[key]
		if e == nil || now.Sub(e.seenAt) < c.ttl {
			break
		}
		c.order.Remove(front)
		delete(c.seen, key)
	}
}

// Close stops the cleanup goroutine. Idempotent.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
