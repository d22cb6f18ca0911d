package sqlsnap

import (
	"context"
	"os"
	"testing"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// TestRedis needs a disposable redis server, for example
// SQLSNAP_REDIS_ADDR=127.0.0.1:6379.
func TestRedis(t *testing.T) {
	addr := os.Getenv("SQLSNAP_REDIS_ADDR")
	if addr == "" {
		t.Skip("SQLSNAP_REDIS_ADDR not set")
	}
	assert := require.New(t)
	ctx := context.Background()

	rc := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer rc.Close()
	assert.NoError(rc.Ping(ctx).Err())

	prefix := "sqlsnap-test:" + t.Name() + ":"
	r := NewRedis(rc, prefix, true)

	_, ok, err := r.Get(ctx, "k1")
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(r.Set(ctx, "k1", testSnapshot(t, "k1", "John"), []string{"users"}, time.Minute))
	assert.NoError(r.Set(ctx, "k2", testSnapshot(t, "k2"), []string{"orders", "users"}, 10*time.Second))
	assert.NoError(r.Set(ctx, "k3", testSnapshot(t, "k3", "Mary"), []string{"orders"}, time.Minute))

	snap, ok, err := r.Get(ctx, "k1")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(1, snap.RowCount())

	// the shorter k2 entry must not shorten the users tag set
	ttl, err := rc.PTTL(ctx, prefix+"tag:users").Result()
	assert.NoError(err)
	assert.Greater(ttl, 30*time.Second)

	assert.NoError(r.Invalidate(ctx, "users"))
	for key, want := range map[string]bool{"k1": false, "k2": false, "k3": true} {
		_, ok, err := r.Get(ctx, key)
		assert.NoError(err)
		assert.Equal(want, ok, key)
	}
	n, err := rc.Exists(ctx, prefix+"tag:users").Result()
	assert.NoError(err)
	assert.Equal(int64(0), n)

	assert.NoError(r.Invalidate(ctx, "orders"))

	// entries recorded while the tag is dropped go with it
	assert.NoError(r.Set(ctx, "k4", testSnapshot(t, "k4", "Anna"), []string{"users"}, time.Minute))
	dropped, err := tagDrop.Run(ctx, rc, []string{prefix + "tag:users"}, prefix).Int()
	assert.NoError(err)
	assert.Equal(1, dropped)
	_, ok, err = r.Get(ctx, "k4")
	assert.NoError(err)
	assert.False(ok)
}
