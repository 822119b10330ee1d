package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/scopeline/scopeline/internal/config"
)

const (
	keyUsageAccount   = "usage:record:acct:%s"
	keyDistributeLock = "budget:distribute:lock:%s"
)

// UsageLimiter throttles usage ingestion per account and serializes credit
// distribution runs. Disabled deployments get a nil limiter; every method
// degrades to allow.
type UsageLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	rate    float64
	burst   int
	lockTTL time.Duration
}

func NewUsageLimiter(cfg config.Config) (*UsageLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.UsageRate <= 0 || limitCfg.UsageBurst <= 0 {
		return nil, errors.New("usage rate limit must be positive")
	}
	if limitCfg.LockTTLSeconds <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &UsageLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.UsageRate,
		burst:   limitCfg.UsageBurst,
		lockTTL: time.Duration(limitCfg.LockTTLSeconds) * time.Second,
	}, nil
}

func (l *UsageLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *UsageLimiter) AllowUsage(ctx context.Context, accountID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyUsageAccount, strings.TrimSpace(accountID)), l.rate, l.burst)
}

func (l *UsageLimiter) TryLockDistribution(ctx context.Context, accountID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyDistributeLock, strings.TrimSpace(accountID)), l.lockTTL)
}

func (l *UsageLimiter) ReleaseDistribution(ctx context.Context, accountID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keyDistributeLock, strings.TrimSpace(accountID)), token)
}
