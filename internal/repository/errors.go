package repository

import "errors"

var (
	ErrNotFound        = errors.New("не найдено")
	ErrVersionConflict = errors.New("конфликт версий")
	ErrDuplicate       = errors.New("запись уже существует")
)
