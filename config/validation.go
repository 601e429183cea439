// Package config provides validation utilities for adapter and store
// configurations.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator accumulates configuration validation errors.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

// RequireNonEmpty validates that a string field is not empty.
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "value cannot be empty",
		})
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0.
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be positive, got %d", value),
		})
	}
	return v
}

// ValidateRange validates that an integer field is within [min, max].
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %d and %d, got %d", min, max, value),
		})
	}
	return v
}

// ValidatePort validates that a port number is valid (1-65535).
func (v *Validator) ValidatePort(field string, port int) *Validator {
	return v.ValidateRange(field, port, 1, 65535)
}

// RequireTimeout validates that a duration field is positive.
func (v *Validator) RequireTimeout(field string, d time.Duration) *Validator {
	if d <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("timeout must be positive, got %s", d),
		})
	}
	return v
}

// RequireOneOf validates that a string field takes one of the allowed values.
func (v *Validator) RequireOneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return v
		}
	}
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value %q is not one of %s", value, strings.Join(allowed, ", ")),
	})
	return v
}

// Err returns the accumulated errors joined, or nil when validation passed.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	errs := make([]error, len(v.errors))
	for i, e := range v.errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Errors exposes the raw validation errors.
func (v *Validator) Errors() []ValidationError {
	return v.errors
}
