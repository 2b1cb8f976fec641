package ynab

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingToken is returned by New when no API token is supplied.
var ErrMissingToken = errors.New("ynab: missing API token")

// AuthError means the API rejected the credential. Never retried: the key
// is bad or revoked and retrying would only burn the rate limit.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ynab: authentication rejected (status %d)", e.StatusCode)
}

// RequestError covers non-auth 4xx responses. These indicate a bug on our
// side or an API contract change, so they are fatal.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("ynab: request failed (status %d): %s", e.StatusCode, e.Body)
}

// RateLimitError is a 429 carrying the provider's advertised wait time.
// Handled inside the client; callers never see it unless wrapped in an
// ExhaustedError.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("ynab: rate limited, retry after %s", e.RetryAfter)
}

// TransientError covers network failures and 5xx responses, both eligible
// for retry.
type TransientError struct {
	StatusCode int // 0 when the failure never produced a response
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ynab: transient failure (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ynab: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ExhaustedError reports that the retry budget ran out. Last is the final
// retryable failure observed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("ynab: giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
