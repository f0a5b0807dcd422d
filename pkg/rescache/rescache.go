// Package rescache memoizes results of cacheable, idempotent tool calls.
// Keys canonicalize the argument map so ordering and formatting differences
// collapse to one entry. Expired entries stay in place for the stale read
// path, which serves last-known-good values during degradation; they are
// evicted once older than the stale ceiling.
package rescache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Key derives the canonical cache key for a tool call. encoding/json sorts
// map keys at every level, so equivalent argument maps produce the same key.
func Key(tool string, args map[string]interface{}) string {
	canonical, err := json.Marshal(args)
	if err != nil {
		canonical = []byte(fmt.Sprintf("%v", args))
	}
	sum := sha256.Sum256(canonical)
	return tool + ":" + hex.EncodeToString(sum[:16])
}

type entry struct {
	value    interface{}
	storedAt time.Time
	ttl      time.Duration
}

// Cache is an in-process result cache with per-entry TTLs
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Put stores a value under a key with its TTL
func (c *Cache) Put(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{value: value, storedAt: c.now(), ttl: ttl}
}

// Get returns the cached value if its age is within the TTL. Expired
// entries are reported as misses but kept for the stale read path; they are
// evicted by GetStale once too old even for degradation.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) > e.ttl {
		return nil, false
	}
	return e.value, true
}

// GetStale returns the cached value even past its TTL, as long as its age is
// within maxAge. Used to serve a last-known-good value when the upstream is
// failing. The entry's age is returned alongside the value.
func (c *Cache) GetStale(key string, maxAge time.Duration) (interface{}, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}
	age := c.now().Sub(e.storedAt)
	if age > maxAge {
		delete(c.entries, key)
		return nil, 0, false
	}
	return e.value, age, true
}

// Delete removes an entry
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of entries, including expired ones not yet evicted
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Purge removes every entry
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
}
