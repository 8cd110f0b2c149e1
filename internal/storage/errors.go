package storage

import "errors"

var (
	// ErrNotFound reports a lookup for a record that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate reports a uniqueness violation.
	ErrDuplicate = errors.New("record already exists")
)
