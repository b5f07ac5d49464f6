package dataverse

import (
	"errors"
	"fmt"
	"time"
)

// UnauthorizedError reports an HTTP 401/403 from the endpoint. The
// dispatcher reacts by invalidating the token and retrying once.
type UnauthorizedError struct {
	StatusCode int
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("dataverse: request unauthorized (HTTP %d)", e.StatusCode)
}

// ThrottleError reports rate limiting, either an HTTP 429 or a 200
// whose payload embeds a throttling marker. RetryAfter is zero when the
// server gave no hint.
type ThrottleError struct {
	StatusCode int
	RetryAfter time.Duration
	Marker     string
}

func (e *ThrottleError) Error() string {
	if e.Marker != "" {
		return fmt.Sprintf("dataverse: request throttled (marker %q)", e.Marker)
	}
	return fmt.Sprintf("dataverse: request throttled (HTTP %d)", e.StatusCode)
}

// ExecutionError reports a 200 response whose payload encodes an
// internal service failure. Not retried.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("dataverse: remote execution failed: %s", e.Message)
}

// IsUnauthorized reports whether err is an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var ue *UnauthorizedError
	return errors.As(err, &ue)
}

// AsThrottle extracts a ThrottleError from err's chain.
func AsThrottle(err error) (*ThrottleError, bool) {
	var te *ThrottleError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsExecutionError reports whether err is an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
