package travio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for every non-2xx response from the gateway.
type APIError struct {
	StatusCode int    `json:"status_code" yaml:"status_code"`
	StatusText string `json:"status_text" yaml:"status_text"`
	Message    string `json:"message"     yaml:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status: %d)", e.Message, e.StatusCode)
}

// errorEnvelope is the gateway's error body. Either field may be set.
type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewAPIError builds an APIError from a status line and a raw response body.
// The message prefers the body's "message" field, then "error", then the
// status text when the body is absent or not JSON.
func NewAPIError(statusCode int, statusText string, body []byte) *APIError {
	if statusText == "" {
		statusText = http.StatusText(statusCode)
	}

	apiErr := &APIError{
		StatusCode: statusCode,
		StatusText: statusText,
		Message:    statusText,
	}

	var envelope errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil {
		switch {
		case envelope.Message != "":
			apiErr.Message = envelope.Message
		case envelope.Error != "":
			apiErr.Message = envelope.Error
		}
	}

	return apiErr
}

// Static errors for err113 compliance.
var (
	// ErrNetwork marks failures where no HTTP response was received.
	ErrNetwork = errors.New("network error")

	ErrConfigRequired      = errors.New("config is required")
	ErrAPIEndpointRequired = errors.New("API endpoint is required")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrNoRefreshToken      = errors.New("no refresh token available")
	ErrInvalidToken        = errors.New("invalid access token")
	ErrNoMoreItems         = errors.New("no more items")
	ErrCacheMiss           = errors.New("key not found")
	ErrCacheExpired        = errors.New("entry expired")
)

// StatusCode extracts the HTTP status from an APIError anywhere in the chain.
// It returns 0 for network failures and foreign errors.
func StatusCode(err error) int {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	return 0
}

// IsUnauthorized checks if the error is a 401 from the gateway.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden checks if the error is a 403 from the gateway.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsNotFound checks if the error is a 404 from the gateway.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsNetworkError reports whether the request never produced a response.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}
