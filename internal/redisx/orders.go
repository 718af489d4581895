package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/redis/go-redis/v9"
)

// Idempotency maps checkout keys to the order they produced.
type Idempotency struct{ Redis *redis.Client }

func (i *Idempotency) Lookup(ctx context.Context, key string) (string, bool, error) {
	id, err := i.Redis.Get(ctx, fmt.Sprintf(KeyIdemCheckout, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errx.WrapRedis(err)
	}
	return id, true, nil
}

func (i *Idempotency) Remember(ctx context.Context, key, orderID string) error {
	return errx.WrapRedis(i.Redis.Set(ctx, fmt.Sprintf(KeyIdemCheckout, key), orderID, TTLIdempotency).Err())
}

// StatusCache keeps the latest known status per order.
type StatusCache struct{ Redis *redis.Client }

func (c *StatusCache) SetStatus(ctx context.Context, orderID string, s orders.Status) error {
	return errx.WrapRedis(c.Redis.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), string(s), TTLStatusCache).Err())
}

// GetStatus reports ok=false on a cache miss.
func (c *StatusCache) GetStatus(ctx context.Context, orderID string) (orders.Status, bool, error) {
	v, err := c.Redis.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errx.WrapRedis(err)
	}
	s, err := orders.ParseStatus(v)
	if err != nil {
		return "", false, nil
	}
	return s, true, nil
}

// MarkProcessed records an event id for service and reports whether it was
// new. Uses SET NX so concurrent consumers agree on a single winner.
func MarkProcessed(ctx context.Context, rdb *redis.Client, service, eventID string) (bool, error) {
	ok, err := rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Result()
	if err != nil {
		return false, errx.WrapRedis(err)
	}
	return ok, nil
}
