package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/personakit/persona/pkg/adapters/redis"
)

func newTestLocker(t *testing.T) (*redisstore.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewLocker(client, "persona:"), mr
}

func TestLockerAcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "chan-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("persona:lock:chan-1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("persona:lock:chan-1"))
}

func TestLockerBlocksSecondHolder(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "chan-1", time.Minute)
	require.NoError(t, err)

	// A second holder cannot acquire until the first releases.
	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(shortCtx, "chan-1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "chan-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLockerUnlockOnlyReleasesOwnLock(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "chan-1", time.Minute)
	require.NoError(t, err)

	// Another holder takes over after the first lock expires via TTL.
	mr.FastForward(2 * time.Minute)
	unlock2, err := locker.Lock(ctx, "chan-1", time.Minute)
	require.NoError(t, err)

	// The stale unlock must not remove the new holder's lock.
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("persona:lock:chan-1"))

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("persona:lock:chan-1"))
}

func TestLockerDistinctKeysDoNotContend(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	unlockA, err := locker.Lock(ctx, "chan-a", time.Minute)
	require.NoError(t, err)
	unlockB, err := locker.Lock(ctx, "chan-b", time.Minute)
	require.NoError(t, err)

	require.NoError(t, unlockA(ctx))
	require.NoError(t, unlockB(ctx))
}
