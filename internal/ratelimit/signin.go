// Package ratelimit throttles repeated failed sign-ins per email address.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/safar/go-sql-shop/internal/config"
)

type SigninLimiter struct {
	rdb         redis.Cmdable
	maxAttempts int64
	window      time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func NewSigninLimiter(rdb redis.Cmdable, cfg config.RedisConfig) *SigninLimiter {
	return &SigninLimiter{
		rdb:         rdb,
		maxAttempts: int64(cfg.MaxAttempts),
		window:      cfg.LockoutWindow,
	}
}

func attemptsKey(email string) string {
	return "signin_attempts:" + strings.ToLower(email)
}

func lockKey(email string) string {
	return "signin_lock:" + strings.ToLower(email)
}

// Blocked returns how long the address stays locked, or zero if sign-in is
// allowed.
func (l *SigninLimiter) Blocked(ctx context.Context, email string) (time.Duration, error) {
	ttl, err := l.rdb.TTL(ctx, lockKey(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("check signin lock: %w", err)
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// RecordFailure counts a failed attempt. Reaching the limit locks the
// address for the configured window and resets the counter.
func (l *SigninLimiter) RecordFailure(ctx context.Context, email string) error {
	key := attemptsKey(email)

	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("count signin failure: %w", err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("expire signin counter: %w", err)
		}
	}

	if n >= l.maxAttempts {
		if err := l.rdb.Set(ctx, lockKey(email), 1, l.window).Err(); err != nil {
			return fmt.Errorf("lock signin: %w", err)
		}
		if err := l.rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("reset signin counter: %w", err)
		}
	}
	return nil
}

func (l *SigninLimiter) Reset(ctx context.Context, email string) error {
	if err := l.rdb.Del(ctx, attemptsKey(email), lockKey(email)).Err(); err != nil {
		return fmt.Errorf("reset signin attempts: %w", err)
	}
	return nil
}
