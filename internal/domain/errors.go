package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidConfiguration = errors.New("invalid game configuration")
	ErrTransient            = errors.New("storage unavailable")
	ErrValidation           = errors.New("invalid input")
	ErrConflict             = errors.New("already exists")
)
