package sqlsnap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prashanthpai/sqlsnap/snapshot"

	"github.com/dgraph-io/ristretto"
)

// Ristretto implements cache.Cacher interface to use ristretto as an
// in-process backend. Snapshots are stored as is, without serialization.
type Ristretto struct {
	c *ristretto.Cache

	mu      sync.Mutex
	tags    map[string]map[string]struct{}
	entries map[string]*ristrettoEntry
}

type ristrettoEntry struct {
	key  string
	tags []string
	snap *snapshot.Snapshot
	dead bool // invalidated, possibly before ristretto applied the set
}

// Get gets a snapshot from ristretto. Returns the snapshot, a boolean
// which represents whether key exists or not and an error.
func (r *Ristretto) Get(_ context.Context, key string) (*snapshot.Snapshot, bool, error) {
	i, ok := r.c.Get(key)
	if !ok {
		return nil, false, nil
	}

	e, ok := i.(*ristrettoEntry)
	if !ok {
		return nil, false, fmt.Errorf("Ristretto.Get(): i.(*ristrettoEntry) failed")
	}

	return e.snap, true, nil
}

// Set sets the given snapshot into ristretto with provided TTL duration and
// records key under every tag.
func (r *Ristretto) Set(_ context.Context, key string, snap *snapshot.Snapshot, tags []string, ttl time.Duration) error {
	e := &ristrettoEntry{key: key, tags: tags, snap: snap}

	r.mu.Lock()
	r.index(e)
	r.mu.Unlock()

	// using # of rows as cost
	cost := int64(snap.RowCount())
	if cost < 1 {
		cost = 1
	}
	if !r.c.SetWithTTL(key, e, cost, ttl) {
		r.unindex(e)
		return nil
	}

	r.mu.Lock()
	dead := e.dead
	r.mu.Unlock()
	if dead {
		// an Invalidate ran between indexing and storing
		r.c.Del(key)
	}
	return nil
}

// Invalidate deletes every key recorded under tags.
func (r *Ristretto) Invalidate(_ context.Context, tags ...string) error {
	var keys []string

	r.mu.Lock()
	for _, tag := range tags {
		for key := range r.tags[tag] {
			if e := r.entries[key]; e != nil {
				e.dead = true
				r.drop(e)
			}
			keys = append(keys, key)
		}
		delete(r.tags, tag)
	}
	r.mu.Unlock()

	for _, key := range keys {
		r.c.Del(key)
	}
	return nil
}

// Wait blocks until buffered writes are applied. Mostly useful in tests.
func (r *Ristretto) Wait() {
	r.c.Wait()
}

// Close stops ristretto's goroutines.
func (r *Ristretto) Close() {
	r.c.Close()
}

// index must be called with mu held.
func (r *Ristretto) index(e *ristrettoEntry) {
	if prev := r.entries[e.key]; prev != nil {
		r.drop(prev)
	}
	r.entries[e.key] = e
	for _, tag := range e.tags {
		keys, ok := r.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			r.tags[tag] = keys
		}
		keys[e.key] = struct{}{}
	}
}

// drop removes e from the index. mu must be held.
func (r *Ristretto) drop(e *ristrettoEntry) {
	if r.entries[e.key] != e {
		return
	}
	delete(r.entries, e.key)
	for _, tag := range e.tags {
		if keys, ok := r.tags[tag]; ok {
			delete(keys, e.key)
			if len(keys) == 0 {
				delete(r.tags, tag)
			}
		}
	}
}

// unindex is ristretto's exit callback: it runs when an entry is evicted,
// rejected, expired, replaced or deleted. Entries replaced by a newer Set
// of the same key are no longer indexed and are left alone.
func (r *Ristretto) unindex(val interface{}) {
	e, ok := val.(*ristrettoEntry)
	if !ok {
		return
	}
	r.mu.Lock()
	r.drop(e)
	r.mu.Unlock()
}

// indexed returns the number of keys in the tag index.
func (r *Ristretto) indexed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// NewRistretto creates a ristretto backed store from config. Number of rows
// is used as "cost" (in ristretto's terminology) for each snapshot, so
// MaxCost bounds the number of cached rows. An OnExit set in config is
// still called.
func NewRistretto(config *ristretto.Config) (*Ristretto, error) {
	r := &Ristretto{
		tags:    make(map[string]map[string]struct{}),
		entries: make(map[string]*ristrettoEntry),
	}

	cfg := *config
	onExit := config.OnExit
	cfg.OnExit = func(val interface{}) {
		r.unindex(val)
		if onExit != nil {
			onExit(val)
		}
	}

	c, err := ristretto.NewCache(&cfg)
	if err != nil {
		return nil, err
	}
	r.c = c
	return r, nil
}
