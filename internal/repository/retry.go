package repository

import (
	"context"
	"errors"
	"time"

	"github.com/soulace/support-service/internal/kv"
)

const (
	storeAttempts = 3
	storeBackoff  = 25 * time.Millisecond
)

// withRetry runs fn up to storeAttempts times. Missing keys are not
// transient, so kv.ErrNotFound aborts immediately; anything else is treated
// as store I/O trouble and retried with a short backoff.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= storeAttempts; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, kv.ErrNotFound) {
			return err
		}
		if attempt == storeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * storeBackoff):
		}
	}
	return err
}
