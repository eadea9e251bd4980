// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/shopcore/internal/platform/constants"
)

// RedisResetThrottle implements [ResetThrottle] with SET NX EX keys.
type RedisResetThrottle struct {
	client redis.Cmdable
}

// NewRedisResetThrottle creates a new Redis-backed [ResetThrottle].
func NewRedisResetThrottle(client redis.Cmdable) *RedisResetThrottle {
	return &RedisResetThrottle{client: client}
}

/*
Acquire claims the cooldown key for window.

Description: SET NX is atomic, so of two concurrent requests for the same
email exactly one acquires the claim.

Parameters:
  - context: context.Context
  - key: string (normalised email)
  - window: time.Duration

Returns:
  - bool: false if the key is already claimed
  - error: Connectivity errors
*/
func (repository *RedisResetThrottle) Acquire(context context.Context, key string, window time.Duration) (bool, error) {
	acquired, err := repository.client.SetNX(context, constants.RedisPrefixResetCooldown+key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("redis_reset_throttle_acquire_failed: %w", err)
	}
	return acquired, nil
}

/*
Release deletes the cooldown key.

Parameters:
  - context: context.Context
  - key: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisResetThrottle) Release(context context.Context, key string) error {
	if err := repository.client.Del(context, constants.RedisPrefixResetCooldown+key).Err(); err != nil {
		return fmt.Errorf("redis_reset_throttle_release_failed: %w", err)
	}
	return nil
}
