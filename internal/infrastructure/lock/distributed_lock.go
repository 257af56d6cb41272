package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// Redis distributed lock
// ============================================================================
//
// Two concurrent withdrawals against the same account must not both read the
// same stale balance. Every balance mutation therefore runs under a
// per-account lock: SET key value NX EX acquires, a Lua script that checks
// the value before DEL releases. The value identifies the holder so an
// expired holder cannot delete a lock someone else has since taken.
//
// ============================================================================

var ErrLockFailed = errors.New("failed to acquire lock")

type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock attempts the lock once without blocking.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock blocks until the lock is held, retrying up to maxRetries times.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock releases the lock if this instance still holds it.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// Per-account locker
// ============================================================================

// RedisLocker implements AccountLocker over Redis. Locks are taken in
// ascending account-id order; on any failure everything already held is
// released before returning.
type RedisLocker struct {
	client        *redis.Client
	expiration    time.Duration
	retryInterval time.Duration
	maxRetries    int
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client:        client,
		expiration:    30 * time.Second,
		retryInterval: 100 * time.Millisecond,
		maxRetries:    30,
	}
}

func (r *RedisLocker) Acquire(ctx context.Context, accountIDs ...int64) (func(), error) {
	ids := sortedUnique(accountIDs)
	holder := uuid.NewString()

	held := make([]*DistributedLock, 0, len(ids))
	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			// release on a fresh context so cancellation cannot leak locks
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = held[i].Unlock(releaseCtx)
			cancel()
		}
	}

	for _, id := range ids {
		dl := NewDistributedLock(r.client, accountLockKey(id), holder, r.expiration)
		if err := dl.Lock(ctx, r.retryInterval, r.maxRetries); err != nil {
			releaseHeld()
			return nil, fmt.Errorf("account %d: %w", id, err)
		}
		held = append(held, dl)
	}

	return releaseHeld, nil
}

func accountLockKey(accountID int64) string {
	return fmt.Sprintf("account:lock:%d", accountID)
}
