package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/redis/go-redis/v9"
)

// Settings is a read-through Redis cache in front of a SettingsStore.
type Settings struct {
	Redis   *redis.Client
	Backing orders.SettingsStore
}

func (s *Settings) value(ctx context.Context, key string) (string, bool, error) {
	k := fmt.Sprintf(KeySetting, key)
	v, err := s.Redis.Get(ctx, k).Result()
	if err == nil {
		return v, v != "", nil
	}
	if !errors.Is(err, redis.Nil) {
		logx.Warn().Err(errx.WrapRedis(err)).Str("key", key).Msg("setting cache read failed")
	}

	v, ok, err := s.Backing.GetSetting(ctx, key)
	if err != nil {
		return "", false, err
	}
	// an empty value caches "unset"
	if err := s.Redis.Set(ctx, k, v, TTLSetting).Err(); err != nil {
		logx.Warn().Err(errx.WrapRedis(err)).Str("key", key).Msg("setting cache write failed")
	}
	return v, ok, nil
}

func (s *Settings) Bool(ctx context.Context, key string) (bool, error) {
	v, ok, err := s.value(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("setting %s: %w", key, err)
	}
	return b, nil
}

func (s *Settings) SetBool(ctx context.Context, key string, v bool) error {
	raw := strconv.FormatBool(v)
	if err := s.Backing.PutSetting(ctx, key, raw); err != nil {
		return err
	}
	return errx.WrapRedis(s.Redis.Set(ctx, fmt.Sprintf(KeySetting, key), raw, TTLSetting).Err())
}
