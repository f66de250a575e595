// Package apierror provides the error envelopes returned by the API. Handlers
// never send raw internal errors (upstream bodies, DB errors) to clients.
package apierror

// APIError is the envelope for all 4xx/5xx responses
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError carries per-field messages
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}
