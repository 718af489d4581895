package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Only the holder's token may release the lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a SET NX based lock shared by every api replica.
type Locker struct {
	Redis *redis.Client
	TTL   time.Duration
	Retry time.Duration
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{Redis: rdb, TTL: TTLLock, Retry: 50 * time.Millisecond}
}

// Lock blocks until the key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := fmt.Sprintf(KeyLock, key)
	token := uuid.NewString()
	for {
		ok, err := l.Redis.SetNX(ctx, k, token, l.TTL).Result()
		if err != nil {
			return nil, errx.WrapRedis(err)
		}
		if ok {
			return func() {
				// release even if the caller's ctx is already cancelled
				if err := releaseScript.Run(context.Background(), l.Redis, []string{k}, token).Err(); err != nil {
					logx.Warn().Err(err).Str("key", k).Msg("lock release failed")
				}
			}, nil
		}
		t := time.NewTimer(l.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
