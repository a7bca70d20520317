// Package cache provides a keyed TTL/LRU cache with debounced write-back
// to a backing store and deduplication of concurrent population.
//
// Eviction runs in two independent prunes: entries older than TTL are
// dropped when the backing snapshot is loaded, and the oldest entries
// beyond Capacity are dropped when the snapshot is saved. The in-memory
// map stays authoritative between flushes; a failed save is best-effort
// and silently dropped.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is one cached value with its last write time (unix ms).
type Entry[V any] struct {
	Value   V     `json:"value"`
	Written int64 `json:"written"`
}

type snapshot[V any] struct {
	Entries   map[string]Entry[V] `json:"entries"`
	UpdatedAt int64               `json:"updated_at"`
}

// Options configure a Cache instance.
type Options struct {
	Capacity int           // max entries retained at save time
	TTL      time.Duration // max entry age applied at load time
	Debounce time.Duration // write coalescing window

	// Load reads the persisted snapshot blob; ok=false means no snapshot
	// exists yet. Save writes it. Either may be nil for a purely
	// in-memory cache.
	Load func() ([]byte, bool, error)
	Save func([]byte) error
}

// Cache is a capacity- and age-bounded cache keyed by string.
type Cache[V any] struct {
	opts Options

	mu      sync.Mutex
	entries map[string]Entry[V]
	timer   *time.Timer

	group singleflight.Group
	now   func() time.Time
}

// New creates a Cache and loads the persisted snapshot, dropping entries
// older than TTL. A failed load yields an empty cache, never an error.
func New[V any](opts Options) *Cache[V] {
	if opts.Capacity <= 0 {
		opts.Capacity = 200
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 400 * time.Millisecond
	}

	c := &Cache[V]{
		opts:    opts,
		entries: make(map[string]Entry[V]),
		now:     time.Now,
	}
	c.load()
	return c
}

func (c *Cache[V]) load() {
	if c.opts.Load == nil {
		return
	}
	blob, ok, err := c.opts.Load()
	if err != nil || !ok {
		return
	}

	var snap snapshot[V]
	if err := json.Unmarshal(blob, &snap); err != nil {
		return
	}

	cutoff := int64(0)
	if c.opts.TTL > 0 {
		cutoff = c.now().Add(-c.opts.TTL).UnixMilli()
	}
	for key, e := range snap.Entries {
		if e.Written < cutoff {
			continue
		}
		c.entries[key] = e
	}
}

// Get returns the cached value for key, if present.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.Value, ok
}

// Put stores a value and schedules a debounced flush.
func (c *Cache[V]) Put(key string, value V) {
	if key == "" {
		return
	}
	c.mu.Lock()
	c.entries[key] = Entry[V]{Value: value, Written: c.now().UnixMilli()}
	c.scheduleFlushLocked()
	c.mu.Unlock()
}

// Len returns the number of in-memory entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrPopulate returns the cached value for key, or runs populate to
// produce it. Concurrent calls for the same key share a single in-flight
// population. populate returning ok=false means the value is unavailable:
// nothing is cached and a future call retries from scratch. An empty key
// is not cacheable and always misses.
func (c *Cache[V]) GetOrPopulate(ctx context.Context, key string, populate func(context.Context) (V, bool, error)) (V, bool) {
	var zero V
	if key == "" {
		return zero, false
	}
	if v, ok := c.Get(key); ok {
		return v, true
	}

	type outcome struct {
		value V
		ok    bool
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		// A concurrent population may have landed while we queued.
		if v, ok := c.Get(key); ok {
			return outcome{v, true}, nil
		}
		value, ok, err := populate(ctx)
		if err != nil || !ok {
			return outcome{}, nil
		}
		c.Put(key, value)
		return outcome{value, true}, nil
	})
	o := v.(outcome)
	return o.value, o.ok
}

// scheduleFlushLocked arms the debounce timer. Scheduling while a timer
// is already pending is a no-op; the eventual flush reads whatever state
// is current at fire time.
func (c *Cache[V]) scheduleFlushLocked() {
	if c.opts.Save == nil || c.timer != nil {
		return
	}
	c.timer = time.AfterFunc(c.opts.Debounce, c.Flush)
}

// Flush prunes to capacity and writes the snapshot immediately. The
// oldest entries by last-write time are dropped, not just omitted from
// the snapshot. A failed save is silently dropped; the in-memory cache
// remains authoritative.
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if len(c.entries) > c.opts.Capacity {
		type aged struct {
			key     string
			written int64
		}
		all := make([]aged, 0, len(c.entries))
		for key, e := range c.entries {
			all = append(all, aged{key, e.Written})
		}
		sort.Slice(all, func(i, j int) bool { return all[i].written < all[j].written })
		for _, a := range all[:len(all)-c.opts.Capacity] {
			delete(c.entries, a.key)
		}
	}

	blob, err := json.Marshal(snapshot[V]{Entries: c.entries, UpdatedAt: c.now().UnixMilli()})
	save := c.opts.Save
	c.mu.Unlock()

	if err != nil || save == nil {
		return
	}
	save(blob)
}

// Close flushes any pending state. Safe to call with no pending timer.
func (c *Cache[V]) Close() {
	c.mu.Lock()
	pending := c.timer != nil
	c.mu.Unlock()
	if pending {
		c.Flush()
	}
}
