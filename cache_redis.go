package sqlsnap

import (
	"context"
	"time"

	"github.com/prashanthpai/sqlsnap/cache"
	"github.com/prashanthpai/sqlsnap/snapshot"

	redis "github.com/go-redis/redis/v8"
)

// tagAdd adds ARGV[1] to the tag set KEYS[1] and makes the set live at
// least ARGV[2] milliseconds, or forever when ARGV[2] is 0. A tag set never
// expires before the longest lived entry recorded in it.
var tagAdd = redis.NewScript(`
local fresh = redis.call('EXISTS', KEYS[1]) == 0
redis.call('SADD', KEYS[1], ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl == 0 then
	redis.call('PERSIST', KEYS[1])
	return 0
end
local cur = redis.call('PTTL', KEYS[1])
if fresh or (cur >= 0 and cur < ttl) then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return 0
`)

// tagDrop deletes every entry recorded in the tag set KEYS[1], whose
// members are keys without the ARGV[1] prefix, and then the set itself.
// It runs atomically, so no entry can join the set between the read and
// the delete. Returns the number of entries recorded.
var tagDrop = redis.NewScript(`
local keys = redis.call('SMEMBERS', KEYS[1])
for _, key in ipairs(keys) do
	redis.call('DEL', ARGV[1] .. key)
end
redis.call('DEL', KEYS[1])
return #keys
`)

// Redis implements cache.Cacher interface to use redis as backend with
// go-redis as the redis client library. Tags are redis sets holding the
// keys stored under them.
type Redis struct {
	c         redis.UniversalClient
	keyPrefix string
	codec     cache.Codec
}

// Get gets a snapshot from redis. Returns the snapshot, a boolean which
// represents whether key exists or not and an error.
func (r *Redis) Get(ctx context.Context, key string) (*snapshot.Snapshot, bool, error) {
	b, err := r.c.Get(ctx, r.keyPrefix+key).Bytes()
	switch err {
	case nil:
		snap, err := r.codec.Decode(b)
		if err != nil {
			return nil, true, err
		}
		return snap, true, nil
	case redis.Nil:
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// Set sets the given snapshot into redis with provided TTL duration. Every
// tag set is extended to outlive the entry.
func (r *Redis) Set(ctx context.Context, key string, snap *snapshot.Snapshot, tags []string, ttl time.Duration) error {
	b, err := r.codec.Encode(snap)
	if err != nil {
		return err
	}

	_, err = r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.keyPrefix+key, b, ttl)
		for _, tag := range tags {
			tagAdd.Eval(ctx, p, []string{r.tagKey(tag)}, key, ttl.Milliseconds())
		}
		return nil
	})
	return err
}

// Invalidate deletes every key recorded under tags along with the tag sets.
func (r *Redis) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		if err := tagDrop.Run(ctx, r.c, []string{r.tagKey(tag)}, r.keyPrefix).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Redis) tagKey(tag string) string {
	return r.keyPrefix + "tag:" + tag
}

// NewRedis creates a new instance of redis backend using go-redis client.
// All keys created in redis by sqlsnap will have start with prefix.
// Snapshots are xz compressed when compress is set.
func NewRedis(c redis.UniversalClient, keyPrefix string, compress bool) *Redis {
	return &Redis{
		c:         c,
		keyPrefix: keyPrefix,
		codec:     cache.Codec{Compress: compress},
	}
}
