package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func assertMutualExclusion(t *testing.T, locker ConversationLocker) {
	t.Helper()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "conversation-1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	assertMutualExclusion(t, NewLocalLocker(5*time.Second))
}

func TestLocalLocker_WaitTimeout(t *testing.T) {
	locker := NewLocalLocker(20 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	// Other keys are independent.
	releaseOther, err := locker.Acquire(context.Background(), "other")
	require.NoError(t, err)
	releaseOther()

	release()
	release() // second call is a no-op

	again, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	again()

	locker.mu.Lock()
	assert.Empty(t, locker.locks)
	locker.mu.Unlock()
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	locker := NewLocalLocker(time.Minute)
	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute, 5*time.Second, nil)
	locker.retryDelay = time.Millisecond

	assertMutualExclusion(t, locker)
}

func TestRedisLocker_WaitTimeoutAndRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute, 30*time.Millisecond, nil)
	locker.retryDelay = 5 * time.Millisecond

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, mr.Exists("interview:lock:k"))

	_, err = locker.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	release()
	assert.False(t, mr.Exists("interview:lock:k"))
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Second, 10*time.Millisecond, nil)

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// The TTL lapses and another holder takes the key.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("interview:lock:k", "someone-else"))

	release()
	value, err := mr.Get("interview:lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

func TestRedisLocker_ReleaseFailureIsLogged(t *testing.T) {
	mr, client := newTestRedis(t)
	core, logs := observer.New(zap.WarnLevel)
	locker := NewRedisLocker(client, time.Minute, 10*time.Millisecond, zap.New(core))

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	mr.Close()
	release()

	entries := logs.FilterMessageSnippet("Failed to release conversation lock").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "interview:lock:k", entries[0].ContextMap()["key"])
}
