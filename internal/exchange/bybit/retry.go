package bybit

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
)

// retryConfig bounds the in-cycle retry of transient venue failures.
// Exhaustion surfaces the last error to the caller; the cycle is never
// blocked indefinitely.
type retryConfig struct {
	maxRetries    int
	initialDelay  time.Duration
	maxDelay      time.Duration
	backoffFactor float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxRetries:    3,
		initialDelay:  500 * time.Millisecond,
		maxDelay:      5 * time.Second,
		backoffFactor: 2.0,
	}
}

// withRetry executes fn, retrying transient errors with exponential backoff
// and jitter. Auth errors and venue rejections are surfaced immediately.
func withRetry(ctx context.Context, fn func() error) error {
	cfg := defaultRetryConfig()
	var lastErr error

	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.maxRetries || !exchange.IsRetryable(lastErr) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt, cfg)):
		}
	}

	return lastErr
}

func backoffDelay(attempt int, cfg retryConfig) time.Duration {
	delay := time.Duration(float64(cfg.initialDelay) * math.Pow(cfg.backoffFactor, float64(attempt)))
	if delay > cfg.maxDelay {
		delay = cfg.maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/5 + 1))
	return delay + jitter
}
