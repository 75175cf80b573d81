package oaiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error variables
var (
	// ErrNoAPIKey indicates the API key is missing
	ErrNoAPIKey = errors.New("API key is required")

	// ErrNoModel indicates no model name was supplied
	ErrNoModel = errors.New("model name is required")

	// ErrEmptyResponse indicates the API returned no choices
	ErrEmptyResponse = errors.New("empty response from API")
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Code       string
	Param      string
	RequestID  string
	RetryAfter string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimit returns true if this is a rate limit error.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limit_exceeded"
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "invalid_api_key"
}
