package service

import (
	"errors"
	"fmt"
)

const CodeConfiguration = "CONFIGURATION_ERROR"
const CodeStorage = "STORAGE_ERROR"
const CodeNotFound = "NOT_FOUND"
const CodeValidation = "VALIDATION_ERROR"
const CodeVersionConflict = "VERSION_CONFLICT"
const CodeUnauthorized = "UNAUTHORIZED"
const CodeConflict = "CONFLICT"

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

// IsCode проверяет, что в цепочке ошибок есть BusinessError с указанным кодом
func IsCode(err error, code string) bool {
	var busErr *BusinessError
	return errors.As(err, &busErr) && busErr.Code == code
}

func NewNotFound(resource string, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

// NewConfigurationError - хранилище не настроено, приложение работает в деградированном режиме
func NewConfigurationError() *BusinessError {
	return &BusinessError{
		Code:    CodeConfiguration,
		Message: "Хранилище не настроено: задайте backend.url и backend.api_key",
		Details: map[string]any{},
	}
}

func NewStorageError(operation string, err error) *BusinessError {
	return &BusinessError{
		Code:    CodeStorage,
		Message: fmt.Sprintf("Ошибка хранилища при операции %s", operation),
		Details: map[string]any{
			"operation": operation,
		},
		Err: err,
	}
}

func NewVersionConflict(resource string, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeVersionConflict,
		Message: fmt.Sprintf("%s %s была изменена параллельно, обновите данные", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewConflict(resource string, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeConflict,
		Message: fmt.Sprintf("%s: %s", resource, reason),
		Details: map[string]any{
			"resource": resource,
			"reason":   reason,
		},
	}
}

func NewUnauthorized(reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeUnauthorized,
		Message: fmt.Sprintf("Требуется авторизация: %s", reason),
		Details: map[string]any{
			"reason": reason,
		},
	}
}
