package model

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUpstream       = errors.New("upstream error")
	ErrNetwork        = errors.New("network error")
	ErrRateLimited    = errors.New("rate limited")
	ErrForbidden      = errors.New("forbidden")
)

// APIError represents a structured error for API responses.
// Code follows the storefront taxonomy: network_error, <scope>_upstream_unauthorized,
// missing_<field>, invalid_<field> and <scope>_error.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized

	// Upstream status and error code when the error mirrors an upstream response.
	UpstreamStatus int    `json:"-"`
	UpstreamCode   string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// AsAPIError extracts an APIError from err's chain.
// Errors that carry no APIError become internal_error.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return NewInternalError(err), false
}

// NewNetworkError creates an error for transport failures reaching an upstream service.
// There is no upstream status to mirror, so it surfaces as 500.
func NewNetworkError(service string, err error) *APIError {
	return &APIError{
		Code:       "network_error",
		Message:    fmt.Sprintf("could not reach %s", service),
		StatusCode: http.StatusInternalServerError,
		Err:        fmt.Errorf("%w: %v", ErrNetwork, err),
	}
}

// NewUpstreamUnauthorizedError creates an error for credentials rejected upstream.
// status is the upstream status (401 or 403).
func NewUpstreamUnauthorizedError(scope string, status int, upstreamCode, message string) *APIError {
	if message == "" {
		message = "upstream rejected the credentials"
	}
	return &APIError{
		Code:           scope + "_upstream_unauthorized",
		Message:        message,
		StatusCode:     mirrorStatus(status),
		Err:            ErrUnauthorized,
		UpstreamStatus: status,
		UpstreamCode:   upstreamCode,
	}
}

var credentialMarkers = []string{"token", "authentication", "unauthorized"}

// BlamesCredentials reports whether a 401/403 response names the credentials
// as the cause in its error code or message.
func BlamesCredentials(status int, upstreamCode, message string) bool {
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return false
	}
	text := strings.ToLower(upstreamCode + " " + message)
	for _, marker := range credentialMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// IsCredentialRejection reports whether err mirrors an upstream 401/403 that
// blames the credentials.
func IsCredentialRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return BlamesCredentials(apiErr.UpstreamStatus, apiErr.UpstreamCode, apiErr.Message)
}

// NewUpstreamError creates a <scope>_error for a non-2xx upstream response.
// The upstream message is passed through; the status is mirrored where it is an error status.
func NewUpstreamError(scope string, status int, upstreamCode, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("%s request failed", scope)
	}
	err := fmt.Errorf("%w: status %d", ErrUpstream, status)
	if upstreamCode != "" {
		err = fmt.Errorf("%w: status %d code %s", ErrUpstream, status, upstreamCode)
	}
	return &APIError{
		Code:           scope + "_error",
		Message:        message,
		StatusCode:     mirrorStatus(status),
		Err:            err,
		UpstreamStatus: status,
		UpstreamCode:   upstreamCode,
	}
}

// NewMissingFieldError creates a 400 missing_<field> error.
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:       "missing_" + field,
		Message:    fmt.Sprintf("%s is required", field),
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

// NewInvalidFieldError creates a 400 invalid_<field> error.
func NewInvalidFieldError(field, reason string) *APIError {
	return &APIError{
		Code:       "invalid_" + field,
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       resource + "_not_found",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// NewUnauthenticatedError creates a 401 error when the caller has no usable identity.
func NewUnauthenticatedError(scope string) *APIError {
	return &APIError{
		Code:       scope + "_unauthenticated",
		Message:    "sign in required",
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// NewForbiddenError creates a 403 error for resources the caller does not own.
func NewForbiddenError(scope string) *APIError {
	return &APIError{
		Code:       scope + "_forbidden",
		Message:    "access denied",
		StatusCode: http.StatusForbidden,
		Err:        ErrForbidden,
	}
}

// NewRateLimitError creates a 429 error for rate limiting.
func NewRateLimitError(service string) *APIError {
	return &APIError{
		Code:       "rate_limited",
		Message:    fmt.Sprintf("%s rate limit exceeded, please retry later", service),
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrRateLimited,
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "internal_error",
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// mirrorStatus keeps upstream error statuses and maps anything else to 500.
func mirrorStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusInternalServerError
}
