package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// ClientAccountLockKey builds redis keys for the per-client account critical section.
// Account reconciliation and payment mutations for the same client must not interleave.
func ClientAccountLockKey(clientID int64) string {
	return fmt.Sprintf("accounts:client:%d:lock", clientID)
}

// AccountLocker serializes balance-sensitive operations per client.
type AccountLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewAccountLocker constructs an AccountLocker. A nil client disables locking,
// which only service tests use.
func NewAccountLocker(locker *redislock.Client, ttl time.Duration) *AccountLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &AccountLocker{locker: locker, ttl: ttl}
}

// WithLock runs fn while holding the client's account lock.
func (l *AccountLocker) WithLock(ctx context.Context, clientID int64, fn func(ctx context.Context) error) error {
	if l == nil || l.locker == nil {
		return fn(ctx)
	}

	lock, err := l.locker.Obtain(ctx, ClientAccountLockKey(clientID), l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err != nil {
		return fmt.Errorf("shared: obtain account lock for client %d: %w", clientID, err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	return fn(ctx)
}
