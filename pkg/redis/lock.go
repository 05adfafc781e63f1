package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only when it still carries our token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Locker is a distributed mutex keyed by scope, backed by SET NX PX
type Locker struct {
	client     *Client
	ttl        time.Duration
	retryDelay time.Duration
}

// NewLocker creates a Locker whose keys expire after ttl
func NewLocker(client *Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = TTLLock
	}
	return &Locker{
		client:     client,
		ttl:        ttl,
		retryDelay: 25 * time.Millisecond,
	}
}

// Lock blocks until scope is acquired or ctx is done. The returned func releases it.
func (l *Locker) Lock(ctx context.Context, scope string) (func(), error) {
	key := l.client.KeyBuilder.KeyLock(scope)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", scope, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

// TryLock acquires scope without waiting. ok is false while another holder has it.
func (l *Locker) TryLock(ctx context.Context, scope string) (func(), bool, error) {
	key := l.client.KeyBuilder.KeyLock(scope)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", scope, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { l.release(key, token) }, true, nil
}

func (l *Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := l.client.Eval(ctx, releaseScript, []string{key}, token); err != nil {
		l.client.log.Warn("failed to release lock",
			zap.String("key_prefix", prefixForLog(key)),
			zap.Error(err))
	}
}
