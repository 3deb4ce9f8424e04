package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

// DefinitionCache holds table definitions keyed by lowercased source name.
// Entries are never replaced once stored, and concurrent first access to a
// source issues a single describe. Share one cache between sessions by
// passing it in SessionOptions.
type DefinitionCache struct {
	store gcache.Cache
	mu    sync.Mutex
	group singleflight.Group
	loads atomic.Int64
}

// NewDefinitionCache returns an empty, unbounded cache.
func NewDefinitionCache() *DefinitionCache {
	return &DefinitionCache{
		store: gcache.New(0).Simple().Build(),
	}
}

func cacheKey(source string) string {
	return strings.ToLower(source)
}

// Get returns the cached definition for source.
func (c *DefinitionCache) Get(source string) (*TableDefinition, bool) {
	v, err := c.store.GetIFPresent(cacheKey(source))
	if err != nil {
		return nil, false
	}
	def, ok := v.(*TableDefinition)
	return def, ok
}

// Add stores def unless source already has an entry, and returns the
// entry now cached.
func (c *DefinitionCache) Add(source string, def *TableDefinition) *TableDefinition {
	if def == nil {
		return nil
	}

	key := cacheKey(source)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, err := c.store.GetIFPresent(key); err == nil {
		return existing.(*TableDefinition)
	}
	_ = c.store.Set(key, def)
	return def
}

// Load returns the cached definition for source, calling fetch on a miss.
// Concurrent loads of the same source share one fetch. A failed fetch is
// not cached.
//
// Each caller waits under its own ctx. A caller that joined a fetch which
// then failed because the fetching caller's context ended starts a new
// fetch instead of inheriting that error.
func (c *DefinitionCache) Load(ctx context.Context, source string, fetch func(context.Context) (*TableDefinition, error)) (*TableDefinition, error) {
	for {
		if def, ok := c.Get(source); ok {
			return def, nil
		}

		var led bool
		ch := c.group.DoChan(cacheKey(source), func() (interface{}, error) {
			led = true
			if def, ok := c.Get(source); ok {
				return def, nil
			}
			c.loads.Add(1)
			def, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			return c.Add(source, def), nil
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-ch:
			if r.Err == nil {
				return r.Val.(*TableDefinition), nil
			}
			if !led && ctx.Err() == nil && isContextError(r.Err) {
				continue
			}
			return nil, r.Err
		}
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Invalidate drops the entry for source. The next Describe fetches it again.
func (c *DefinitionCache) Invalidate(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Remove(cacheKey(source))
}

// Purge drops every entry.
func (c *DefinitionCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Purge()
}

// Len returns the number of cached definitions.
func (c *DefinitionCache) Len() int {
	return c.store.Len(false)
}

// Loads returns how many times a definition has been fetched.
func (c *DefinitionCache) Loads() int64 {
	return c.loads.Load()
}
