package trigger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoflow/backend/internal/trigger"
)

func TestMemoryStoreMarksAndRemembers(t *testing.T) {
	store := trigger.NewMemoryStore(10)
	ctx := context.Background()

	seen, err := store.Seen(ctx, "inst", "m1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Mark(ctx, "inst", "m1"))

	seen, err = store.Seen(ctx, "inst", "m1")
	require.NoError(t, err)
	assert.True(t, seen)

	// ids are scoped per instance
	seen, err = store.Seen(ctx, "other", "m1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryStoreEvictsOldestPastCap(t *testing.T) {
	store := trigger.NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Mark(ctx, "inst", fmt.Sprintf("m%d", i)))
	}

	seen, _ := store.Seen(ctx, "inst", "m0")
	assert.False(t, seen, "oldest entries are evicted")
	seen, _ = store.Seen(ctx, "inst", "m1")
	assert.False(t, seen)
	seen, _ = store.Seen(ctx, "inst", "m4")
	assert.True(t, seen, "newest entries survive")
}

func TestRedisStoreMarksWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := trigger.NewRedisStoreFromClient(client, trigger.WithTTL(time.Minute))
	ctx := context.Background()

	seen, err := store.Seen(ctx, "inst", "m1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Mark(ctx, "inst", "m1"))

	seen, err = store.Seen(ctx, "inst", "m1")
	require.NoError(t, err)
	assert.True(t, seen)

	// ids expire, bounding the set
	mr.FastForward(2 * time.Minute)

	seen, err = store.Seen(ctx, "inst", "m1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisStorePrefixOption(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := trigger.NewRedisStoreFromClient(client, trigger.WithPrefix("custom:"))
	ctx := context.Background()

	require.NoError(t, store.Mark(ctx, "inst", "m1"))
	assert.True(t, mr.Exists("custom:inst:m1"))
}
