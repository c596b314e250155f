package relay

import (
	"context"
	"errors"
	"time"

	"service-dispatch/internal/logx"
)

// ErrPermanent marks a delivery error that retrying cannot fix.
var ErrPermanent = errors.New("permanent delivery failure")

type counter interface {
	Inc()
}

// RetryConfig describes the behaviour of RetryingSink.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingSink retries failed publishes with exponential backoff.
type RetryingSink struct {
	next    Sink
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
}

// NewRetryingSink wraps next. It returns nil when next is nil.
func NewRetryingSink(next Sink, logger logx.Logger, retries counter, cfg RetryConfig) *RetryingSink {
	if next == nil {
		return nil
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &RetryingSink{next: next, logger: logger, retries: retries, cfg: cfg}
}

// Name returns the wrapped sink's name.
func (s *RetryingSink) Name() string { return s.next.Name() }

// Close closes the wrapped sink.
func (s *RetryingSink) Close() error { return s.next.Close() }

// Publish delivers msg, retrying transient failures.
func (s *RetryingSink) Publish(ctx context.Context, msg Message) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		err := s.next.Publish(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == s.cfg.MaxAttempts || !isRetryable(err) {
			break
		}

		delay := backoff(s.cfg.BaseDelay, s.cfg.MaxDelay, attempt)
		if s.retries != nil {
			s.retries.Inc()
		}
		s.logger.Warn("relay retry",
			logx.String("sink", s.next.Name()),
			logx.String("topic", msg.Topic),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrPermanent),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// backoff doubles base per attempt, capped at max.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max || d <= 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
