package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spendwise/internal/core"
)

// loadTimeout bounds a shared load once it no longer follows the caller
// that started it.
const loadTimeout = 30 * time.Second

// ViewCache holds loaded view models keyed by core.View. Concurrent misses
// for one view share a single load, and a load that overlaps an
// invalidation of its view is returned but not stored.
type ViewCache[T any] struct {
	lru   *LRUCache[T]
	group singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight tracks the loads running for one key. Entries live only while a
// load is running.
type flight struct {
	gen   uint64
	loads int
}

func NewViewCache[T any](maxSize int, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{
		lru:     NewLRUCache[T](maxSize, ttl),
		flights: make(map[string]*flight),
	}
}

func (c *ViewCache[T]) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		f = &flight{}
		c.flights[key] = f
	}
	f.loads++
	return f.gen
}

func (c *ViewCache[T]) finish(key string, gen uint64, data T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.flights[key]
	if err == nil && f.gen == gen {
		c.lru.Set(key, data)
	}
	if f.loads--; f.loads == 0 {
		delete(c.flights, key)
	}
}

// GetOrLoad returns the cached value for v or runs load. The shared load
// survives the cancellation of any one caller; each caller still stops
// waiting when its own ctx ends.
func (c *ViewCache[T]) GetOrLoad(ctx context.Context, v core.View, load func(context.Context) (T, error)) (T, error) {
	key := v.Key()
	if data, ok := c.lru.Get(key); ok {
		return data, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		gen := c.begin(key)
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		data, err := load(lctx)
		c.finish(key, gen, data, err)
		return data, err
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops the given views. It satisfies services.Invalidator.
func (c *ViewCache[T]) Invalidate(_ context.Context, views ...core.View) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range views {
		key := v.Key()
		if f, ok := c.flights[key]; ok {
			f.gen++
		}
		c.lru.Delete(key)
		c.group.Forget(key)
	}
	return nil
}

// inFlight reports how many keys have a load running.
func (c *ViewCache[T]) inFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.flights)
}

func (c *ViewCache[T]) CleanExpired() int { return c.lru.CleanExpired() }
func (c *ViewCache[T]) Size() int         { return c.lru.Size() }
func (c *ViewCache[T]) Stats() Stats      { return c.lru.Stats() }
