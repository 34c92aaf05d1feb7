package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ChallengeStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewChallengeStore(client), mr
}

func TestChallengeStoreSingleUse(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "+15550001", "123456", time.Minute))

	ok, err := store.Take(ctx, "+15550001", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	// Consumed: the same code cannot verify twice.
	ok, err = store.Take(ctx, "+15550001", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChallengeStoreWrongCodeDoesNotConsume(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "+15550001", "123456", time.Minute))

	ok, err := store.Take(ctx, "+15550001", "654321")
	require.NoError(t, err)
	assert.False(t, ok)

	// A failed attempt leaves the pending code intact.
	ok, err = store.Take(ctx, "+15550001", "123456")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChallengeStoreExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "+15550001", "123456", 5*time.Minute))

	mr.FastForward(5*time.Minute + time.Second)

	ok, err := store.Take(ctx, "+15550001", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChallengeStoreReissueReplaces(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "+15550001", "111111", time.Minute))
	require.NoError(t, store.Save(ctx, "+15550001", "222222", time.Minute))

	ok, err := store.Take(ctx, "+15550001", "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Take(ctx, "+15550001", "222222")
	require.NoError(t, err)
	assert.True(t, ok)
}
