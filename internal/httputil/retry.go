// Package httputil holds small HTTP helpers shared by the GitHub client and the downloader.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultAttempts is the default number of tries for HTTP requests.
	DefaultAttempts = 3

	// DefaultDelay is the default delay before the first retry.
	DefaultDelay = time.Second
)

// RetryableError marks a failure as transient so Retry will try again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn up to attempts times, doubling delay after each retryable failure.
// Errors that are not wrapped in RetryableError are returned immediately.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}

	return lastErr
}

// IsRetryable reports whether err, or anything it wraps, is a RetryableError.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// StatusError records a non-success HTTP status.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d %s", e.Err, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error { return e.Err }

// NewStatusError wraps base with the HTTP status code.
// Server errors are marked retryable.
func NewStatusError(base error, code int) error {
	err := &StatusError{Code: code, Err: base}
	if code >= http.StatusInternalServerError {
		return &RetryableError{Err: err}
	}
	return err
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
