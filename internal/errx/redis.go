package errx

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

const (
	RedisErrorMessage    = "redis operation failed"
	RedisNotFoundMessage = "redis key not found"
)

// WrapRedis maps Redis errors onto the error kinds.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(KindNotFound, err, RedisNotFoundMessage)
	}
	return New(KindPersistence, err, RedisErrorMessage)
}
