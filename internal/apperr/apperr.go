// Package apperr defines the error taxonomy shared by the catalog core.
// Handlers match on these types with errors.As to pick transport responses.
package apperr

import (
	"fmt"
	"strings"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one message per failing field. All fields are
// checked independently so a caller can report every violation at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError reports a missing resource by name.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// DatabaseError is a store fault with a sanitized message. It never carries
// driver error text, literal SQL values, or schema detail.
type DatabaseError struct {
	Op string
}

func (e *DatabaseError) Error() string {
	if e.Op == "" {
		return "database error"
	}
	return "database error during " + e.Op
}

// ExternalServiceError names a failing upstream service.
type ExternalServiceError struct {
	Service string
	Detail  string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: external service error", e.Service)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Detail)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
