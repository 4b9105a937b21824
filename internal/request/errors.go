package request

import (
	"errors"
	"fmt"
)

// Reason classifies why an option bag was rejected.
type Reason string

const (
	ReasonMissingField       Reason = "missing_field"
	ReasonInvalidType        Reason = "invalid_type"
	ReasonInvalidEnum        Reason = "invalid_enum"
	ReasonInvalidCombination Reason = "invalid_combination"
)

var (
	ErrValidation         = errors.New("invalid upload request")
	ErrMissingField       = errors.New("missing field")
	ErrInvalidType        = errors.New("invalid type")
	ErrInvalidEnum        = errors.New("invalid enum value")
	ErrInvalidCombination = errors.New("invalid option combination")
)

// ValidationError reports a rejected option bag. It matches ErrValidation and
// the sentinel for its Reason under errors.Is.
type ValidationError struct {
	Reason  Reason
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation or the sentinel for e.Reason.
func (e *ValidationError) Is(target error) bool {
	if e == nil {
		return false
	}
	if target == ErrValidation {
		return true
	}
	return target == e.Reason.sentinel()
}

// ErrorKind classifies the error for status mapping.
func (e *ValidationError) ErrorKind() string {
	return "validation"
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonMissingField:
		return ErrMissingField
	case ReasonInvalidType:
		return ErrInvalidType
	case ReasonInvalidEnum:
		return ErrInvalidEnum
	case ReasonInvalidCombination:
		return ErrInvalidCombination
	default:
		return nil
	}
}

func missingField(field, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: ReasonMissingField, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidType(field, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: ReasonInvalidType, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidEnum(field, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: ReasonInvalidEnum, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidCombination(field, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: ReasonInvalidCombination, Field: field, Message: fmt.Sprintf(format, args...)}
}
