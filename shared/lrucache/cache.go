// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package lrucache provides a size bounded, time expiring cache used to keep
// hot lookups (subscription status, parsed session tokens) off the hosted
// services.
package lrucache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/spacemonkeygo/monkit/v3"

	"storj.io/common/time2"
)

var mon = monkit.Package()

// Options controls the details of the expiration policy.
type Options struct {
	// Expiration is how long an entry will be valid. A non-positive value
	// means no expiration.
	Expiration time.Duration

	// Capacity is how many entries to keep. A non-positive value disables
	// caching.
	Capacity int

	// Name is used to differentiate caches in monkit stats.
	Name string
}

type entry[T any] struct {
	once   sync.Once
	when   time.Time
	order  *list.Element
	value  T
	loaded bool
}

// ExpiringLRU caches values for string keys with a time based expiration
// and an LRU based eviction policy.
type ExpiringLRU[T any] struct {
	mu    sync.Mutex
	opts  Options
	data  map[string]*entry[T]
	order *list.List
}

// New constructs an ExpiringLRU with the given options.
func New[T any](opts Options) *ExpiringLRU[T] {
	return &ExpiringLRU[T]{
		opts:  opts,
		data:  make(map[string]*entry[T]),
		order: list.New(),
	}
}

// Get returns the value for key if it is cached and valid, otherwise it
// calls load. Concurrent loads of the same key are deduplicated. Errors are
// not cached.
func (cache *ExpiringLRU[T]) Get(ctx context.Context, key string, load func() (T, error)) (value T, err error) {
	if cache.opts.Capacity <= 0 {
		cache.observe(false)
		return load()
	}

	for {
		cache.mu.Lock()
		state, ok := cache.data[key]
		switch {
		case !ok:
			for len(cache.data) >= cache.opts.Capacity {
				cache.removeLocked(cache.order.Back())
			}
			state = &entry[T]{when: time2.Now(ctx)}
			state.order = cache.order.PushFront(key)
			cache.data[key] = state

		case cache.expired(ctx, state):
			cache.removeLocked(state.order)
			cache.mu.Unlock()
			continue

		default:
			cache.order.MoveToFront(state.order)
		}
		cache.mu.Unlock()

		called := false
		state.once.Do(func() {
			called = true
			value, err = load()
			if err == nil {
				state.value = value
				state.loaded = true
				return
			}

			// other waiters on this entry retry with a fresh one.
			cache.mu.Lock()
			if cache.data[key] == state {
				cache.removeLocked(state.order)
			}
			cache.mu.Unlock()
		})

		if called || state.loaded {
			cache.observe(!called)
			return state.value, err
		}
	}
}

// Delete removes key from the cache.
func (cache *ExpiringLRU[T]) Delete(ctx context.Context, key string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if state, ok := cache.data[key]; ok {
		cache.removeLocked(state.order)
	}
}

// Len returns the number of entries, including ones that have expired but
// were not evicted yet.
func (cache *ExpiringLRU[T]) Len() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return len(cache.data)
}

func (cache *ExpiringLRU[T]) expired(ctx context.Context, state *entry[T]) bool {
	return cache.opts.Expiration > 0 && time2.Since(ctx, state.when) > cache.opts.Expiration
}

// removeLocked must be called with mu held.
func (cache *ExpiringLRU[T]) removeLocked(elem *list.Element) {
	delete(cache.data, elem.Value.(string))
	cache.order.Remove(elem)
}

func (cache *ExpiringLRU[T]) observe(hit bool) {
	if cache.opts.Name == "" {
		return
	}

	tag := monkit.NewSeriesTag("name", cache.opts.Name)
	if hit {
		mon.Event("cache_hit", tag)
	} else {
		mon.Event("cache_miss", tag)
	}
}
