package repository

import "errors"

var (
	// ErrNotFound is returned when a row addressed by id does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict reports a unique or foreign-key violation.
	ErrConflict = errors.New("repository: conflict")
	// ErrInvalidLimit rejects a non-positive result page size.
	ErrInvalidLimit = errors.New("repository: invalid result limit")
)
