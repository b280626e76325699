package repository

import "errors"

var (
	// ErrNotFound is returned when a car, parent or campaign lookup matches
	// nothing.
	ErrNotFound = errors.New("document not found")

	// ErrParentInUse is returned when deleting a parent whose listing count
	// is still positive.
	ErrParentInUse = errors.New("parent still referenced by listings")
)
