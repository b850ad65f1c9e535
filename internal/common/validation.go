package common

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationError is one failed rule. Value is deliberately not rendered,
// since request fields may hold personal data.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("field '%s' %s", e.Field, e.Message)
}

// Validator collects rule failures across request fields.
type Validator struct {
	errors []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidationRule checks one value; nil means it passed.
type ValidationRule func(fieldName string, value any) *ValidationError

// Field applies rules to value and records every failure.
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage joins all failures with "; ".
func (v *Validator) ErrorMessage() string {
	msgs := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil or an AppError wrapping ErrValidation.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError("VALIDATION_ERROR", v.ErrorMessage(), ErrValidation)
}

func Required(fieldName string, value any) *ValidationError {
	switch v := value.(type) {
	case nil:
		return &ValidationError{Field: fieldName, Message: "is required"}
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Message: "is required"}
		}
	}
	return nil
}

func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		s, ok := value.(string)
		if ok && utf8.RuneCountInString(s) > max {
			return &ValidationError{Field: fieldName, Message: fmt.Sprintf("must be at most %d characters", max)}
		}
		return nil
	}
}

func UUID(fieldName string, value any) *ValidationError {
	s, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Message: "must be a string"}
	}
	if _, err := uuid.Parse(s); err != nil {
		return &ValidationError{Field: fieldName, Message: "must be a valid UUID"}
	}
	return nil
}

// IsValidation reports whether err came from a Validator.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
