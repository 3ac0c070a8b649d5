// Package cache is an in-memory, TTL-bounded LRU cache of minify job
// results, keyed by Key(format, input). Job history already lives in
// internal/store, so the cache has nothing to persist and stays a single
// in-memory LRU tier.
package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// Entry is a cached minify result.
type Entry struct {
	Output    []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired returns true if the entry has passed its expiration time.
func (e *Entry) Expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache is an in-memory LRU cache of minify job results.
type Cache struct {
	memory  *lru.Cache[string, *Entry]
	ttl     time.Duration
	enabled bool
}

// New creates a new Cache. maxEntries bounds the number of cached results;
// a non-positive value defaults to 1000. enabled controls whether Get/Set
// are no-ops, so callers can keep a Cache wired unconditionally and flip
// it off via config.
func New(maxEntries int, ttl time.Duration, enabled bool) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}

	memCache, err := lru.New[string, *Entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: creating LRU: %w", err)
	}

	return &Cache{
		memory:  memCache,
		ttl:     ttl,
		enabled: enabled,
	}, nil
}

// Enabled reports whether this cache is active.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Get returns the cached output for key, if present and not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	entry, ok := c.memory.Get(key)
	if !ok {
		return nil, false
	}
	if entry.Expired() {
		c.memory.Remove(key)
		return nil, false
	}
	return entry.Output, true
}

// Set stores output under key with the cache's configured TTL.
func (c *Cache) Set(key string, output []byte) {
	if !c.enabled {
		return
	}

	now := time.Now()
	c.memory.Add(key, &Entry{
		Output:    output,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	})
}

// StartPurger starts a background goroutine that evicts expired entries
// every 5 minutes until ctx is cancelled. The returned channel is closed
// when the goroutine exits, so callers can synchronize shutdown.
func (c *Cache) StartPurger(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Error().Interface("panic", r).Msg("cache purger: recovered from panic")
						}
					}()
					c.purge()
				}()
			}
		}
	}()
	return done
}

// purge evicts expired entries from the in-memory LRU.
func (c *Cache) purge() {
	keys := c.memory.Keys()
	for _, key := range keys {
		if entry, ok := c.memory.Peek(key); ok && entry.Expired() {
			c.memory.Remove(key)
		}
	}
}
