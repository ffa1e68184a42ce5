package supabase

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoURL is returned when the project URL is missing.
	ErrNoURL = errors.New("supabase: project URL required")

	// ErrNoKey is returned when the API key is missing.
	ErrNoKey = errors.New("supabase: API key required")

	// ErrEmptyResponse is returned when an insert returns no row.
	ErrEmptyResponse = errors.New("supabase: empty response")
)

// APIError represents an error response from PostgREST.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the PostgREST error code (if provided).
	Code string

	// Hint is the PostgREST hint (if provided).
	Hint string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: API error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsNotFound returns true if the resource was not found (HTTP 404).
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
