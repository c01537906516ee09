package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/unihub/unihub/internal/config"
)

const keyPublicPayments = "payments:public:%s"

// PublicLimiter throttles the unauthenticated payment surface (webhook
// deliveries, checkout returns) per caller address. Disabled when no
// redis address is configured.
type PublicLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewPublicLimiter(cfg config.Config) (*PublicLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.PublicRate <= 0 || limitCfg.PublicBurst <= 0 {
		return nil, errors.New("public rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &PublicLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.PublicRate,
		burst:   limitCfg.PublicBurst,
	}, nil
}

// Allow fails open on limiter errors: dropping a legitimate gateway
// delivery costs more than letting one through during a redis outage.
func (l *PublicLimiter) Allow(ctx context.Context, callerKey string) bool {
	if l == nil || !l.enabled {
		return true
	}
	allowed, err := l.bucket.Allow(ctx, fmt.Sprintf(keyPublicPayments, callerKey), l.rate, l.burst)
	if err != nil {
		return true
	}
	return allowed
}
