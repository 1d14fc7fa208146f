// Package common defines shared constants, sentinel errors and small helpers
// used across the timekeeper client. Callers should use errors.Is to match
// the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors raised by the mutation layer.
	ErrEmptyUID     = errors.New("empty uid")
	ErrInvalidInput = errors.New("invalid input")
)
