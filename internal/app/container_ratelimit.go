package app

import (
	"service-dispatch/internal/config"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
)

// Paths that bypass the limiter.
var rateLimitExempt = []string{"/ping", "/healthcheck", "/metrics"}

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.NopLimiter{}
	}
	return ratelimit.NewKeyedLimiter(clock, ratelimit.Config{
		Rate:    rl.Rate,
		Burst:   rl.Burst,
		TTL:     rl.TTL,
		MaxKeys: rl.MaxKeys,
	})
}

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

func newRateLimitMiddleware(logger logx.Logger, m *metrics.Metrics, limiter ratelimit.Limiter) *ratelimit.Middleware {
	return ratelimit.New(logger, m.RateLimitExceeded, limiter, ratelimit.WithExemptPaths(rateLimitExempt...))
}
