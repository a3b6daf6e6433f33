package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testLocker(t *testing.T) (*AccountLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAccountLocker(redislock.New(client), time.Second), mr
}

func TestClientAccountLockKey(t *testing.T) {
	require.Equal(t, "accounts:client:42:lock", ClientAccountLockKey(42))
}

func TestWithLockRunsFn(t *testing.T) {
	locker, mr := testLocker(t)

	ran := false
	err := locker.WithLock(context.Background(), 7, func(ctx context.Context) error {
		ran = true
		// The lock key is held while fn runs.
		require.True(t, mr.Exists(ClientAccountLockKey(7)))
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)

	// Released afterwards.
	require.False(t, mr.Exists(ClientAccountLockKey(7)))
}

func TestWithLockPropagatesError(t *testing.T) {
	locker, mr := testLocker(t)

	sentinel := errors.New("boom")
	err := locker.WithLock(context.Background(), 7, func(ctx context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.False(t, mr.Exists(ClientAccountLockKey(7)))
}

func TestWithLockDistinctClientsDoNotContend(t *testing.T) {
	locker, _ := testLocker(t)

	err := locker.WithLock(context.Background(), 1, func(ctx context.Context) error {
		return locker.WithLock(ctx, 2, func(ctx context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestWithLockNilLockerRunsDirectly(t *testing.T) {
	locker := NewAccountLocker(nil, 0)

	ran := false
	err := locker.WithLock(context.Background(), 7, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}
