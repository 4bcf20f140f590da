package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionInvalid is returned when a request was rejected as unauthorized and the
// session could not be renewed.
var ErrSessionInvalid = errors.New("session invalid")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.StatusCode)
}

// Unauthorized reports whether the server rejected the session credential.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: body}
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}

// Message extracts the server-supplied message from err, or "" when err carries none.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}
