package components

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidComponent = errors.New("invalid component")
	ErrTooManyRows      = errors.New("too many action rows")
)

// Discord limits on component payloads.
// Reference: https://discord.com/developers/docs/interactions/message-components
const (
	MaxRows              = 5
	MaxRowComponents     = 5
	MaxCustomIDLength    = 100
	MaxLabelLength       = 80
	MaxSelectOptions     = 25
	MaxOptionLength      = 100
	MaxPlaceholderLength = 150
)

// ValidationError reports which field of a component broke a limit.
type ValidationError struct {
	Component ComponentType
	Field     string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Component, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidComponent }

func invalid(t ComponentType, field, format string, args ...any) error {
	return &ValidationError{Component: t, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func checkLength(t ComponentType, field, value string, min, max int) error {
	n := len([]rune(value))
	if n < min || n > max {
		if min == 0 {
			return invalid(t, field, "must be at most %d characters, got %d", max, n)
		}
		return invalid(t, field, "must be between %d and %d characters, got %d", min, max, n)
	}
	return nil
}
