// Package apierror defines the error vocabulary shared by the provider
// client and any server-side adapter embedding it. The client raises an
// APIError whenever the gateway responds with an error status; the
// adapter maps recognized APIErrors back to outward-facing status codes.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents an error response from the gateway's provider API.
type APIError struct {
	// StatusCode is the HTTP status code returned by the gateway.
	StatusCode int
	// Message is the response body or a short description of the failure.
	Message string
	// IsAuthError marks the failure as "access token invalid/expired".
	// Only this kind triggers the transparent refresh-and-retry path.
	IsAuthError bool
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.IsAuthError {
		return fmt.Sprintf("gateway auth failure (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// New creates an APIError for the given status code and message.
func New(statusCode int, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewAuth creates an APIError marked as an auth failure.
func NewAuth(statusCode int, message string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Message:     message,
		IsAuthError: true,
	}
}

// IsAuthError reports whether err is (or wraps) an APIError marked as an
// auth failure. This is the only error kind the authenticated request
// wrapper intercepts; every other kind propagates unchanged.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsAuthError
	}
	return false
}

// MapToStatus maps an internal provider-API error to the status code and
// message an embedding adapter should expose. Rules, checked in order:
//
//   - marked as auth error: 401, message passed through
//   - upstream status >= 500: 502 (gateway failure upstream)
//   - upstream status >= 400: 424 (failed dependency)
//
// Errors that are not a recognized APIError (or carry a non-error status)
// produce no mapping; ok is false and the caller must apply its own
// generic fallback rather than mislabel them.
func MapToStatus(err error) (code int, message string, ok bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return 0, "", false
	}

	switch {
	case apiErr.IsAuthError:
		return http.StatusUnauthorized, apiErr.Message, true
	case apiErr.StatusCode >= 500:
		return http.StatusBadGateway, apiErr.Message, true
	case apiErr.StatusCode >= 400:
		return http.StatusFailedDependency, apiErr.Message, true
	default:
		return 0, "", false
	}
}
