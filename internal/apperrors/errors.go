// Package apperrors defines the error kinds shared by the billing core,
// the repositories and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrIntegrityViolation = errors.New("integrity violation")
)

// FieldError reports a single rejected input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidArgument
}

// ValidationErrors collects every field rejected by one validation pass.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error {
	return ErrInvalidArgument
}

// Add appends a field error.
func (v *ValidationErrors) Add(field, reason string) {
	*v = append(*v, FieldError{Field: field, Reason: reason})
}

// OrNil returns nil when nothing was collected, so it can be returned directly.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Fields flattens the errors into a field -> reason map for responses.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		if _, seen := out[fe.Field]; !seen {
			out[fe.Field] = fe.Reason
		}
	}
	return out
}

// Invalid builds a single-field validation error.
func Invalid(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// NotFound builds an ErrNotFound for the given entity and key.
func NotFound(entity, key string, value any) error {
	return fmt.Errorf("%s with %s %v: %w", entity, key, value, ErrNotFound)
}

// InvalidTransition builds an ErrInvalidTransition with a reason.
func InvalidTransition(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidTransition)
}

// InsufficientStock reports a stock guard failure for one product.
func InsufficientStock(productID string, requested, available int) error {
	if available < 0 {
		return fmt.Errorf("product %s (requested: %d): %w", productID, requested, ErrInsufficientStock)
	}
	return fmt.Errorf("product %s (requested: %d, available: %d): %w", productID, requested, available, ErrInsufficientStock)
}

// FieldsOf extracts field-level details from err, if any.
func FieldsOf(err error) map[string]string {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve.Fields()
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return map[string]string{fe.Field: fe.Reason}
	}
	return nil
}

// SortedFields returns the rejected field names in a stable order.
func SortedFields(err error) []string {
	fields := FieldsOf(err)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
