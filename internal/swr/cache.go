// Package swr is a stale-while-revalidate cache for client-side views of
// server state such as the cart and the wishlist.
//
// Reads within the dedupe window are served from memory and concurrent
// fetches of one key share a single request. Mutations apply an optimistic
// value first, then settle on whatever the server answers. The last write
// wins; there is no per-entity locking.
package swr

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultDedupeInterval is how long a fetched value is considered fresh.
const DefaultDedupeInterval = 2 * time.Second

// Fetcher loads the server value for key.
type Fetcher[T any] func(ctx context.Context, key string) (T, error)

// Options tune a Cache.
type Options struct {
	// DedupeInterval defaults to DefaultDedupeInterval.
	DedupeInterval time.Duration
	// RevalidateOnFocus makes OnFocus refetch every key. Off by default.
	RevalidateOnFocus bool
	// DisableRevalidateOnReconnect turns OnReconnect into a no-op.
	DisableRevalidateOnReconnect bool
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

type entry[T any] struct {
	value     T
	err       error
	fetchedAt time.Time
	hasValue  bool
}

// Cache holds one value per key.
type Cache[T any] struct {
	fetch Fetcher[T]
	opts  Options

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry[T]
}

// New creates a cache backed by fetch.
func New[T any](fetch Fetcher[T], opts Options) *Cache[T] {
	if opts.DedupeInterval <= 0 {
		opts.DedupeInterval = DefaultDedupeInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[T]{
		fetch:   fetch,
		opts:    opts,
		entries: make(map[string]*entry[T]),
	}
}

// Get returns the value for key, fetching it when it is missing or older
// than the dedupe window.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !e.fetchedAt.IsZero() && c.opts.Now().Sub(e.fetchedAt) < c.opts.DedupeInterval {
		v, err := e.value, e.err
		c.mu.Unlock()
		return v, err
	}
	c.mu.Unlock()
	return c.Revalidate(ctx, key)
}

// Peek returns the cached value without fetching.
func (c *Cache[T]) Peek(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.hasValue {
		return e.value, true
	}
	var zero T
	return zero, false
}

// Set stores v as the fresh server value for key.
func (c *Cache[T]) Set(key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[T]{value: v, fetchedAt: c.opts.Now(), hasValue: true}
}

// Invalidate marks key stale so the next Get refetches. The stale value stays
// visible through Peek.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.fetchedAt = time.Time{}
	}
}

// Revalidate fetches key now. Concurrent calls for one key share a fetch.
func (c *Cache[T]) Revalidate(ctx context.Context, key string) (T, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		// The shared fetch must outlive any single caller.
		v, err := c.fetch(context.WithoutCancel(ctx), key)
		c.store(key, v, err)
		return v, err
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(T)
		return v, res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Cache[T]) store(key string, v T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{}
		c.entries[key] = e
	}
	e.fetchedAt = c.opts.Now()
	e.err = err
	if err == nil {
		e.value = v
		e.hasValue = true
	}
}

// Mutate applies optimistic to the cached value at once, then runs call.
// On success the server value replaces the optimistic one. On failure the
// key is marked stale and refetched so the server value settles it; other
// optimistic updates made meanwhile are not rolled back. The call error is
// returned. optimistic may be nil.
func (c *Cache[T]) Mutate(ctx context.Context, key string, optimistic func(T) T, call func(ctx context.Context) (T, error)) (T, error) {
	if optimistic != nil {
		c.mu.Lock()
		e, ok := c.entries[key]
		if !ok {
			e = &entry[T]{}
			c.entries[key] = e
		}
		e.value = optimistic(e.value)
		e.hasValue = true
		e.err = nil
		c.mu.Unlock()
	}

	v, err := call(ctx)
	if err != nil {
		c.Invalidate(key)
		if _, ferr := c.Revalidate(ctx, key); ferr != nil {
			err = errors.Join(err, ferr)
		}
		var zero T
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Keys returns the cached keys in sorted order.
func (c *Cache[T]) Keys() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// OnFocus revalidates every key when RevalidateOnFocus is set.
func (c *Cache[T]) OnFocus(ctx context.Context) error {
	if !c.opts.RevalidateOnFocus {
		return nil
	}
	return c.revalidateAll(ctx)
}

// OnReconnect revalidates every key unless disabled.
func (c *Cache[T]) OnReconnect(ctx context.Context) error {
	if c.opts.DisableRevalidateOnReconnect {
		return nil
	}
	return c.revalidateAll(ctx)
}

func (c *Cache[T]) revalidateAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, key := range c.Keys() {
		g.Go(func() error {
			_, err := c.Revalidate(gctx, key)
			return err
		})
	}
	return g.Wait()
}
