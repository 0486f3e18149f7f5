package classify

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when the workflow API key is missing.
	ErrNoAPIKey = errors.New("classify: API key required")

	// ErrNoWorkflowURL is returned when no endpoint is configured.
	ErrNoWorkflowURL = errors.New("classify: workflow URL required")

	// ErrEmptyFrame is returned when a submission carries no image data.
	ErrEmptyFrame = errors.New("classify: empty frame")
)

// APIError represents an error response from the workflow service.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the service, when it sent one.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("classify: workflow error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("classify: workflow error %d", e.StatusCode)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
