package store

import "errors"

var (
	// ErrNotFound indicates a row was not located.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict indicates a unique column already holds the value.
	ErrConflict = errors.New("store: conflict")
)
