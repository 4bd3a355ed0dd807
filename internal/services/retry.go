package services

import (
	"context"
	"log"
	"math/rand"
	"time"
)

var (
	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
	retryJitter    = 250 * time.Millisecond
)

// WithRetry runs fn up to retryAttempts times, backing off exponentially with
// jitter between attempts. Only transient failures are retried; any other
// error returns immediately, as does context cancellation.
func WithRetry(ctx context.Context, label string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay*time.Duration(1<<(attempt-1)) + time.Duration(rand.Int63n(int64(retryJitter)))
			log.Printf("🔄 Retrying %s in %v (attempt %d/%d)", label, delay.Round(time.Millisecond), attempt+1, retryAttempts)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
