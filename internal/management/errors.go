package management

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/ottermq/qhop/internal/core/models"
)

// ErrNotFound matches any *APIError with status 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx answer of the management API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	detail := e.Reason()
	if detail == "" {
		detail = e.Body
	}
	if detail == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, detail)
}

// Reason extracts the broker's explanation from a JSON error body.
func (e *APIError) Reason() string {
	var body models.ErrorResponse
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil {
		return ""
	}
	if body.Reason != "" {
		return body.Reason
	}
	return body.Error
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Transient reports whether the failure is of a class that was retried.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient reports whether err is a retryable server-side failure or a
// network error.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
