package contracts

import "errors"

var (
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidFilter wraps filter validation failures
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrRunInProgress is returned when another digest run holds the lock
	ErrRunInProgress = errors.New("digest run already in progress")
)
