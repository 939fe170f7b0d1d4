package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/procura/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keySupplierTokenClient = "supplier:token:client:%s"

// ClientLimiter throttles callers of a public endpoint by client key.
type ClientLimiter interface {
	Allow(ctx context.Context, client string) (*RateLimitResult, error)
}

// SupplierTokenLimiter guards the unauthenticated supplier token endpoint.
// A nil limiter allows everything.
type SupplierTokenLimiter struct {
	bucket *TokenBucket
	limit  Bucket
}

type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config config.Config
	Log    *zap.Logger
}

func NewSupplierTokenLimiter(p Params) (ClientLimiter, error) {
	limitCfg := p.Config.TokenRateLimit
	if !limitCfg.Enabled {
		p.Log.Info("supplier token rate limit disabled")
		return (*SupplierTokenLimiter)(nil), nil
	}

	addr := strings.TrimSpace(p.Config.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.Rate <= 0 || limitCfg.Burst <= 0 {
		return nil, errors.New("supplier token rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Config.RedisPassword),
		DB:       p.Config.RedisDB,
	})
	p.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return &SupplierTokenLimiter{
		bucket: NewTokenBucket(client),
		limit:  Bucket{Rate: limitCfg.Rate, Burst: limitCfg.Burst},
	}, nil
}

func (l *SupplierTokenLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *SupplierTokenLimiter) Allow(ctx context.Context, client string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	client = strings.TrimSpace(client)
	if client == "" {
		client = "unknown"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keySupplierTokenClient, client), l.limit)
}
