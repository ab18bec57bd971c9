package models

// ErrorResponse is the error body returned by the management API.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
