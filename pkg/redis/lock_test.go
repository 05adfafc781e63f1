package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_MutualExclusion(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewLocker(client, time.Second)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, MatchLockScope("m-1"))
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestLocker_ContextCancelled(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewLocker(client, time.Minute)

	release, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "busy")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewLocker(client, time.Second)
	ctx := context.Background()

	release, err := locker.Lock(ctx, "scope")
	require.NoError(t, err)

	// lock expires and another holder takes it
	mr.FastForward(2 * time.Second)
	key := client.KeyBuilder.KeyLock("scope")
	require.NoError(t, client.Set(ctx, key, "other-holder", time.Minute))

	release()

	val, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "other-holder", val)
}

func TestLocker_TryLock(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewLocker(client, TTLSyncPass)
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, KeySyncPass)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, KeySyncPass)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := locker.TryLock(ctx, KeySyncPass)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}
