package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lock is a single-holder lease built on SET NX PX
type Lock struct {
	client *Client
	prefix string
}

// NewLock creates a lock helper whose keys live under "<prefix>:lock:"
func NewLock(client *Client, prefix string) *Lock {
	return &Lock{client: client, prefix: prefix}
}

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// LockKey returns the full key used for name
func (l *Lock) LockKey(name string) string {
	return fmt.Sprintf("%s:lock:%s", l.prefix, name)
}

// Acquire tries to take the lease for ttl. It returns the holder token
// when acquired. With Redis disabled every caller acquires.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if !l.client.Enabled() {
		return token, true, nil
	}

	ok, err := l.client.Redis().SetNX(ctx, l.LockKey(name), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("lock acquire failed: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lease if token still holds it
func (l *Lock) Release(ctx context.Context, name, token string) error {
	if !l.client.Enabled() {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client.Redis(), []string{l.LockKey(name)}, token).Err(); err != nil {
		return fmt.Errorf("lock release failed: %w", err)
	}
	return nil
}
