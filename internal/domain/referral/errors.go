package referral

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUnauthenticated      = errors.New("authentication required")
	ErrForbidden            = errors.New("actor cannot perform this action on referral")
	ErrNotFound             = errors.New("referral not found")
	ErrComputationInvariant = errors.New("computation invariant violated")

	ErrInvalidStatus     = errors.New("invalid referral status")
	ErrInvalidRole       = errors.New("invalid actor role")
	ErrInvalidAssignment = errors.New("invalid assignment field")
)

// ValidationError reports payload problems keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field string, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}

	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the reason recorded for field, if any.
func (e *ValidationError) Field(field string) (string, bool) {
	if e == nil {
		return "", false
	}
	reason, ok := e.Fields[field]
	return reason, ok
}
