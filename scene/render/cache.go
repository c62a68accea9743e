// ABOUTME: In-memory cache in front of a DOT renderer, keyed by sha256 of the text plus the format.
// ABOUTME: Entries expire after a TTL; failed renders are never stored.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Func renders DOT text in a format. RenderDOT satisfies it.
type Func func(ctx context.Context, dotText string, format string) ([]byte, error)

type cacheEntry struct {
	data      []byte
	createdAt time.Time
}

// Cache memoizes a Func. Scenes that did not change since the last request
// reuse the rendered image.
type Cache struct {
	render Func
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache wraps render with a cache whose entries live for ttl.
func NewCache(render Func, ttl time.Duration) *Cache {
	return &Cache{
		render:  render,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Render returns the cached output for (dotText, format) or renders it.
func (c *Cache) Render(ctx context.Context, dotText string, format string) ([]byte, error) {
	key := cacheKey(dotText, format)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.createdAt) < c.ttl {
		return entry.data, nil
	}

	data, err := c.render(ctx, dotText, format)
	if err != nil {
		return nil, err
	}

	now := c.now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.Sub(e.createdAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{data: data, createdAt: now}
	c.mu.Unlock()
	return data, nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func cacheKey(dotText, format string) string {
	sum := sha256.Sum256([]byte(dotText))
	return hex.EncodeToString(sum[:]) + ":" + format
}
