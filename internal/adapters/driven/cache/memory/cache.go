// Package memory provides an in-memory LRU answer cache with lazy TTL
// expiry.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
)

// Ensure AnswerCache implements the interface.
var _ driven.AnswerCache = (*AnswerCache)(nil)

// entry is a cached answer with its bookkeeping.
type entry struct {
	key         string
	answer      domain.Answer
	storedAt    time.Time
	accessCount int
}

// AnswerCache is a fixed-capacity LRU cache. Entries older than the TTL
// are treated as misses on lookup and reclaimed on the next Put; there is
// no background sweeper.
type AnswerCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recently used
	items    map[string]*list.Element
	now      func() time.Time
}

// Option configures the cache.
type Option func(*AnswerCache)

// WithClock overrides the time source. Useful for testing expiry.
func WithClock(now func() time.Time) Option {
	return func(c *AnswerCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewAnswerCache creates a cache with the given capacity and TTL.
func NewAnswerCache(capacity int, ttl time.Duration, opts ...Option) *AnswerCache {
	if capacity <= 0 {
		capacity = domain.DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}
	c := &AnswerCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached answer for key. An entry past its TTL is a miss
// even if it was accessed recently: stale answers must never be served
// after generation parameters change.
func (c *AnswerCache) Get(_ context.Context, key string) (domain.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return domain.Answer{}, false
	}

	e := el.Value.(*entry)
	if c.now().Sub(e.storedAt) > c.ttl {
		// Lazy expiry: leave the entry for the next Put to overwrite.
		return domain.Answer{}, false
	}

	e.accessCount++
	c.order.MoveToFront(el)
	return e.answer, true
}

// Put stores an answer under key, evicting the least recently used entry
// when the cache is full. Re-putting an existing key refreshes its
// timestamp and recency; observable state beyond access metadata is
// unchanged when the answer is equal.
func (c *AnswerCache) Put(_ context.Context, key string, answer domain.Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.answer = answer
		e.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.order.PushFront(&entry{key: key, answer: answer, storedAt: c.now()})
	c.items[key] = el
}

// evictLocked removes the least recently used entry, preferring an
// expired one anywhere in the list.
func (c *AnswerCache) evictLocked() {
	now := c.now()
	for el := c.order.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*entry)
		if now.Sub(e.storedAt) > c.ttl {
			c.order.Remove(el)
			delete(c.items, e.key)
			return
		}
	}

	el := c.order.Back()
	if el == nil {
		return
	}
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.items, e.key)
}

// Len returns the current number of entries, expired ones included.
func (c *AnswerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge drops all entries.
func (c *AnswerCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
}
