package sqlsnap

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/prashanthpai/sqlsnap/cachekey"
	"github.com/prashanthpai/sqlsnap/snapshot"
)

// record drains rows into a snapshot, stores it when the attributes and
// tags allow and returns a replay of the snapshot in place of rows.
//
// Results with duplicate column names cannot be snapshotted and are passed
// through untouched. A failure while draining is returned as is; rows are
// closed by then.
func (i *Interceptor) record(ctx context.Context, d cachekey.Descriptor, attrs *attributes, rows driver.Rows) (driver.Rows, error) {
	if hasDuplicates(rows.Columns()) {
		i.skip(d, "duplicate column names")
		return rows, nil
	}

	snap, err := snapshot.Capture(snapshot.NewDriverCursor(rows), d.KeyHash)
	if err != nil {
		return nil, err
	}
	i.metrics.captured(ctx, snap.RowCount())

	ttl, ok := i.entryTTL(d, attrs)
	switch {
	case snap.RowCount() > attrs.maxRows:
		i.skip(d, "max rows exceeded")
	case !ok:
		i.skip(d, "no table dependencies")
	default:
		if err := i.c.Set(ctx, d.KeyHash, snap, d.Dependencies, ttl); err != nil {
			i.fail(ctx, "set", fmt.Errorf("Cache.Set failed: %w", err))
		}
	}

	return newRowsCached(snap), nil
}

func (i *Interceptor) skip(d cachekey.Descriptor, reason string) {
	atomic.AddUint64(&i.stats.Skipped, 1)
	i.log.WithFields(logrus.Fields{
		"key_hash": d.KeyHash,
		"reason":   reason,
	}).Debug("result not cached")
}

func hasDuplicates(names []string) bool {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return true
		}
		seen[name] = struct{}{}
	}
	return false
}
