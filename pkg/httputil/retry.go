package httputil

import (
	"context"
	"errors"
	"time"
)

// maxDelay bounds a server-requested wait. When Retry-After asks for longer,
// [Retry] gives up and returns the error instead of sleeping.
const maxDelay = 30 * time.Second

// RetryableError marks a transient failure: a network error, a 5xx
// response or a rate limit. Only errors carrying it are retried by [Retry].
type RetryableError struct {
	Err error

	// After overrides the next backoff delay when the server said how long
	// to wait (Retry-After). Zero keeps the exponential schedule.
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is wrapped with [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Retry calls fn up to attempts times, doubling delay after each retryable
// failure. A non-retryable error, or a Retry-After beyond maxDelay, ends the
// loop at once with that error. Cancellation during a wait returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < max(attempts, 1); i++ {
		if i > 0 {
			d, ok := backoff(err, delay)
			if !ok {
				return err
			}
			if werr := sleep(ctx, d); werr != nil {
				return werr
			}
			delay *= 2
		}
		if err = fn(); !IsRetryable(err) {
			return err
		}
	}
	return err
}

// backoff returns the wait before retrying after last. It reports false
// when the server asked for more than maxDelay.
func backoff(last error, delay time.Duration) (time.Duration, bool) {
	var re *RetryableError
	if errors.As(last, &re) && re.After > 0 {
		return re.After, re.After <= maxDelay
	}
	return delay, true
}

func sleep(ctx context.Context, delay time.Duration) error {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
