package retry

import (
	"context"
	"log"
	"time"

	"storyboard-server/modules/common/apierr"
)

// DefaultAttempts / DefaultBase - the standard policy for provider calls:
// 3 attempts, backoff doubling from 1 second.
const (
	DefaultAttempts = 3
	DefaultBase     = 1 * time.Second
)

// Do runs fn up to attempts times, sleeping base<<n between tries. Only
// transient failures (network, timeout) are retried; everything else returns
// immediately. Context cancellation cuts the wait short.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := base << (attempt - 1)
			log.Printf("⏳ Retry %d/%d in %v after: %v", attempt+1, attempts, wait, err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !apierr.Transient(err) {
			return err
		}
	}
	return err
}
