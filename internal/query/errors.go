package query

import (
	"fmt"
	"strings"
)

// FieldError describes a single malformed query parameter.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every field-level problem found while compiling
// a request, so the caller can report all of them at once instead of the
// first one hit.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "invalid query parameters: " + strings.Join(parts, "; ")
}
