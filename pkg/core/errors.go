package core

import "errors"

// Sentinel errors shared across storage and service layers.
var (
	// ErrNotFound is returned when a video or file does not exist.
	ErrNotFound = errors.New("not found")
)
