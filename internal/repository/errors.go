package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorrupt is returned when a stored snapshot cannot be decoded
	ErrCorrupt = errors.New("corrupt snapshot")
)
