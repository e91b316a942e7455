// Package resilience provides the retry, circuit-breaker, and
// partial-results patterns shared by everything that calls an unreliable
// external source.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// RetryableError wraps an error that is safe to retry: network trouble,
// timeouts, rate limits, 5xx responses, browser crashes.
type RetryableError struct {
	Err        error
	StatusCode int
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// NewRetryableError wraps an error as retryable with an optional HTTP
// status code.
func NewRetryableError(err error, statusCode int) *RetryableError {
	return &RetryableError{Err: err, StatusCode: statusCode}
}

// PermanentError wraps an error that must never be retried: validation,
// authentication, and permission failures.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError wraps an error as non-retryable.
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

// browserCrashPatterns match headless-browser failures that warrant a
// fresh attempt rather than giving up on the source.
var browserCrashPatterns = []string{
	"browser has disconnected",
	"target closed",
	"page crashed",
	"session closed",
	"navigation timeout",
	"net::err",
}

var networkPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
	"rate limit",
	"too many requests",
}

var permanentPatterns = []string{
	"unauthorized",
	"forbidden",
	"invalid api key",
	"permission denied",
	"validation failed",
}

// IsRetryable classifies an error per the taxonomy: explicit
// RetryableError, network timeouts, connection resets, rate limits, and
// browser crashes retry; explicit PermanentError and auth/validation
// failures do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pe *PermanentError
	if errors.As(err, &pe) {
		return false
	}

	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range permanentPatterns {
		if strings.Contains(msg, p) {
			return false
		}
	}
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	for _, p := range browserCrashPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsRetryableHTTPStatus reports whether an HTTP status code indicates a
// transient server-side issue safe to retry.
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
