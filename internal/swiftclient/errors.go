// Package swiftclient implements a streaming HTTP client for an OpenStack
// Swift-compatible object storage backend: token authentication with
// transparent re-auth on expiry, a pluggable concurrency throttle, and the
// account/container/object request set the virtual filesystem projection is
// built on.
package swiftclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for backend response classification. Use errors.Is to
// check; a *ResponseError wraps the sentinel with the raw status and body.
var (
	ErrNotFound       = errors.New("swiftclient: not found")
	ErrUnauthenticated = errors.New("swiftclient: unauthenticated")
	ErrUnauthorized   = errors.New("swiftclient: unauthorized")
	ErrConflict       = errors.New("swiftclient: conflict")
	ErrRedirect       = errors.New("swiftclient: redirect")
	ErrRequest        = errors.New("swiftclient: request failed")
)

// ResponseError wraps a sentinel error with the HTTP status code and a
// truncated body snippet.
type ResponseError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("swiftclient: HTTP %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("swiftclient: HTTP %d", e.StatusCode)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a backend HTTP status code to a sentinel error, per
// the response classification table: 404->NotFound, 401->Unauthenticated,
// 403->Unauthorized, 409->Conflict, 300-399->Redirect, >=400 other->Request.
// Returns nil for 2xx/204 success.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized:
		return ErrUnauthenticated
	case code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusConflict:
		return ErrConflict
	case code >= 300 && code < 400:
		return ErrRedirect
	default:
		return ErrRequest
	}
}

// isAuthExpired reports whether the status code signals that the current
// token must be refreshed before resubmitting the request.
func isAuthExpired(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// isRetryableTransient reports whether a metadata (HEAD/GET listing) request
// may be retried against transient server-side failures. Streaming data
// requests (GET object body, PUT object) never use this path — each object
// is written or read in exactly one backend request beyond the single
// auth retry.
func isRetryableTransient(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
