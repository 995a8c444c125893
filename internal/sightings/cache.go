package sightings

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces the dataset for a row limit.
type LoadFunc func(ctx context.Context, maxRows int) (*Dataset, error)

// Cache memoizes datasets by row limit for the life of the process. There is
// no eviction. Failed loads are not stored, so a later call loads again.
type Cache struct {
	load    LoadFunc
	mu      sync.RWMutex
	entries map[int]*Dataset
	group   singleflight.Group
}

func NewCache(load LoadFunc) *Cache {
	return &Cache{
		load:    load,
		entries: make(map[int]*Dataset),
	}
}

// Lookup says how Get obtained its dataset.
type Lookup string

const (
	LookupHit    Lookup = "hit"    // served from the memo
	LookupMiss   Lookup = "miss"   // this call ran the load
	LookupShared Lookup = "shared" // joined a load already in flight
)

// Get returns the memoized dataset for maxRows, loading it on first use.
// Concurrent first calls for the same key share a single load; only the
// caller that ran it reports LookupMiss.
func (c *Cache) Get(ctx context.Context, maxRows int) (*Dataset, Lookup, error) {
	if maxRows < 1 {
		return nil, "", ErrInvalidRowLimit
	}
	if ds, ok := c.lookup(maxRows); ok {
		return ds, LookupHit, nil
	}

	// The shared load outlives any single caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	result := LookupShared
	v, err, _ := c.group.Do(strconv.Itoa(maxRows), func() (any, error) {
		if ds, ok := c.lookup(maxRows); ok {
			result = LookupHit
			return ds, nil
		}
		result = LookupMiss
		ds, err := c.load(loadCtx, maxRows)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[maxRows] = ds
		c.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, result, err
	}
	return v.(*Dataset), result, nil
}

func (c *Cache) Cached(maxRows int) bool {
	_, ok := c.lookup(maxRows)
	return ok
}

// Keys returns the memoized row limits, ascending.
func (c *Cache) Keys() []int {
	c.mu.RLock()
	keys := make([]int, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

func (c *Cache) lookup(maxRows int) (*Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.entries[maxRows]
	return ds, ok
}
