package cache

import (
	"context"
	"time"

	"github.com/prashanthpai/sqlsnap/snapshot"
)

// Cacher represents a backend cache that can be used by sqlsnap package.
// Entries are snapshots of query results, tagged with the tables the query
// depends on.
type Cacher interface {
	// Get must return the snapshot, a boolean representing whether key is
	// present or not, and an error (must be nil when key is not present).
	Get(ctx context.Context, key string) (*snapshot.Snapshot, bool, error)
	// Set stores snap under key with the given TTL and records key under
	// every tag.
	Set(ctx context.Context, key string, snap *snapshot.Snapshot, tags []string, ttl time.Duration) error
	// Invalidate drops every entry recorded under any of tags.
	Invalidate(ctx context.Context, tags ...string) error
}
