package service

import (
	"errors"
	"maps"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserAlreadyExists  = errors.New("user_already_exists")
	ErrNoSession          = errors.New("no_session")
)

// ValidationError lists the request fields that failed validation, keyed by
// JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// FieldMap returns a copy of the failing fields.
func (e *ValidationError) FieldMap() map[string]string {
	return maps.Clone(e.Fields)
}
