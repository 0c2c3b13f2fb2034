package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/beanlab/bean-curator/internal/logger"
)

// Config holds the per-key request budget
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// Limiter throttles outbound requests per key (one key per storefront host)
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockRateLimiter
type Limiter interface {
	// Wait blocks until a request for key is allowed or ctx is done
	Wait(ctx context.Context, key string) error
}

type limiter struct {
	cfg      Config
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLimiter creates a per-key token bucket limiter
func NewLimiter(cfg Config) (Limiter, error) {
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive, got %v", cfg.RequestsPerSecond)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	logger.Info("Rate limiter initialized",
		zap.Float64("requests_per_second", cfg.RequestsPerSecond),
		zap.Int("burst", cfg.Burst),
	)

	return &limiter{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

func (l *limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
		l.limiters[key] = lim
	}
	return lim
}

// Wait blocks until a request for key is allowed or ctx is done
func (l *limiter) Wait(ctx context.Context, key string) error {
	if err := l.get(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", key, err)
	}
	return nil
}
