package shared

import "errors"

var (
	// ErrNotFound is returned when the requested organization does not exist
	ErrNotFound = errors.New("record not found")
	// ErrReconcile wraps any failure inside the reconciliation transaction
	ErrReconcile = errors.New("reconciliation failed")
)
