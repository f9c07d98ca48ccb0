package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// unlockLua deletes the lock only if it still holds the caller's token, so a
// holder whose TTL lapsed cannot release someone else's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager implements ports.LockManager using SET NX with a TTL and a
// token-checked Lua unlock.
type LockManager struct {
	client   *goredis.Client
	unlockSc *goredis.Script
}

// NewLockManager creates a Redis-backed LockManager.
func NewLockManager(client *goredis.Client) *LockManager {
	return &LockManager{
		client:   client,
		unlockSc: goredis.NewScript(unlockLua),
	}
}

// Acquire takes the lock for key or returns domain.ErrLockHeld.
// The returned unlock func is idempotent and uses its own short context so it
// still runs after the caller's context is cancelled.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := lockPrefix + key

	ok, err := lm.client.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lm.unlockSc.Run(unlockCtx, lm.client, []string{lk}, token).Err()
	}
	return unlock, nil
}
