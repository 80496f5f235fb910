package core

import (
	"errors"

	"github.com/PaulFidika/projectkit/pagination"
)

// Sentinel errors returned by the service and stores.
var (
	// ErrNotFound is returned when a record does not exist or the caller may not see it.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller is authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput wraps validation failures; the wrapped message names the field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCursor is returned for a pagination cursor that does not decode.
	ErrInvalidCursor = pagination.ErrInvalidCursor
)
