package errors

import (
	"errors"
	"fmt"
)

const (
	CodeInvalidURL          = "INVALID_URL"
	CodeInvalidAlias        = "INVALID_ALIAS"
	CodeAliasTaken          = "ALIAS_TAKEN"
	CodeGenerationExhausted = "GENERATION_EXHAUSTED"
	CodeNotFound            = "NOT_FOUND"
	CodeExpired             = "EXPIRED"
	CodeNotFoundOrForbidden = "NOT_FOUND_OR_FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeStorage             = "STORAGE_ERROR"
)

// Error kinds surfaced by the link lifecycle. Compare with errors.Is.
var (
	ErrInvalidURL          = NewBusinessError(CodeInvalidURL, "invalid URL", nil)
	ErrInvalidAlias        = NewBusinessError(CodeInvalidAlias, "invalid custom alias", nil)
	ErrAliasTaken          = NewBusinessError(CodeAliasTaken, "short code is already taken", nil)
	ErrGenerationExhausted = NewBusinessError(CodeGenerationExhausted, "failed to generate unique short code", nil)
	ErrNotFound            = NewBusinessError(CodeNotFound, "link not found", nil)
	ErrExpired             = NewBusinessError(CodeExpired, "link has expired", nil)
	ErrNotFoundOrForbidden = NewBusinessError(CodeNotFoundOrForbidden, "link not found or access denied", nil)
	ErrUnauthorized        = NewBusinessError(CodeUnauthorized, "authentication required", nil)
)

type ValidationError struct {
	Field   string
	Message string
	// Kind is the taxonomy entry this validation failure belongs to.
	Kind error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func NewValidationError(field, message string, kind error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Kind:    kind,
	}
}

type BusinessError struct {
	Code    string
	Message string
	Cause   error
}

func (e *BusinessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Cause
}

func NewBusinessError(code, message string, cause error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewStorageError hides a driver failure behind a stable code.
func NewStorageError(message string, cause error) *BusinessError {
	return NewBusinessError(CodeStorage, message, cause)
}

// IsValidationError проверяет является ли ошибка ошибкой валидации
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsBusinessError проверяет является ли ошибка бизнес-ошибкой
func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}

func GetValidationError(err error) *ValidationError {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr
	}
	return nil
}

// GetBusinessError извлекает BusinessError из ошибки
func GetBusinessError(err error) *BusinessError {
	var businessErr *BusinessError
	if errors.As(err, &businessErr) {
		return businessErr
	}
	return nil
}

// Kind returns the code of the outermost taxonomy entry in err's chain,
// or an empty string for errors outside the taxonomy.
func Kind(err error) string {
	if v := GetValidationError(err); v != nil {
		if b := GetBusinessError(v.Kind); b != nil {
			return b.Code
		}
	}
	if b := GetBusinessError(err); b != nil {
		return b.Code
	}
	return ""
}
