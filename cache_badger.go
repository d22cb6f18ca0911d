package sqlsnap

import (
	"context"
	"errors"
	"time"

	"github.com/prashanthpai/sqlsnap/cache"
	"github.com/prashanthpai/sqlsnap/snapshot"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

const (
	badgerEntryPrefix = "e/"
	badgerTagPrefix   = "t/"
)

// Badger implements cache.Cacher interface on top of a badger database, for
// caches that should survive restarts. Entries live under "e/<key>" and
// every tag is a set of empty "t/<tag>/<key>" markers sharing the entry TTL.
type Badger struct {
	db    *badger.DB
	codec cache.Codec
	owned bool
}

// OpenBadger opens (or creates) a badger database in dir. An empty dir
// keeps everything in memory. badger logs through log when it is not nil.
func OpenBadger(dir string, compress bool, log logrus.FieldLogger) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	if log != nil {
		opts = opts.WithLogger(log)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	b := NewBadger(db, compress)
	b.owned = true
	return b, nil
}

// NewBadger wraps an open database. The caller keeps ownership of db.
func NewBadger(db *badger.DB, compress bool) *Badger {
	return &Badger{
		db:    db,
		codec: cache.Codec{Compress: compress},
	}
}

// Get gets a snapshot from badger. Returns the snapshot, a boolean which
// represents whether key exists or not and an error.
func (b *Badger) Get(_ context.Context, key string) (*snapshot.Snapshot, bool, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	snap, err := b.codec.Decode(val)
	if err != nil {
		return nil, true, err
	}
	return snap, true, nil
}

// Set stores the snapshot and its tag markers in one transaction.
func (b *Badger) Set(_ context.Context, key string, snap *snapshot.Snapshot, tags []string, ttl time.Duration) error {
	val, err := b.codec.Encode(snap)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(withTTL(badger.NewEntry(entryKey(key), val), ttl)); err != nil {
			return err
		}
		for _, tag := range tags {
			if err := txn.SetEntry(withTTL(badger.NewEntry(tagKey(tag, key), nil), ttl)); err != nil {
				return err
			}
		}
		return nil
	})
}

func withTTL(e *badger.Entry, ttl time.Duration) *badger.Entry {
	if ttl > 0 {
		return e.WithTTL(ttl)
	}
	return e
}

// Invalidate deletes every entry recorded under tags and the tag markers.
func (b *Badger) Invalidate(ctx context.Context, tags ...string) error {
	var del [][]byte
	for _, tag := range tags {
		keys, err := b.Keys(ctx, tag)
		if err != nil {
			return err
		}
		for _, key := range keys {
			del = append(del, entryKey(key), tagKey(tag, key))
		}
	}
	if len(del) == 0 {
		return nil
	}

	wb := b.db.NewWriteBatch()
	for _, k := range del {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return err
		}
	}
	return wb.Flush()
}

// Keys returns the live keys recorded under tag.
func (b *Badger) Keys(_ context.Context, tag string) ([]string, error) {
	prefix := []byte(badgerTagPrefix + tag + "/")

	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return keys, err
}

// Close closes the database if it was opened by OpenBadger.
func (b *Badger) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

func entryKey(key string) []byte {
	return []byte(badgerEntryPrefix + key)
}

func tagKey(tag, key string) []byte {
	return []byte(badgerTagPrefix + tag + "/" + key)
}
