package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream используется, когда внешнее хранилище записей вернуло ошибку.
	ErrUpstream = errors.New("record store error")

	// ErrConflict используется для конфликтов состояния (например, блокировка сессии занята).
	ErrConflict = errors.New("resource state conflict")
)
