package storage

import "errors"

var (
	// ErrNotFound means an operation referenced a template or session id
	// absent from the store.
	ErrNotFound = errors.New("not found")

	// ErrValidation means an input field was empty or out of range; it is
	// returned before any mutation is persisted.
	ErrValidation = errors.New("validation failed")
)
