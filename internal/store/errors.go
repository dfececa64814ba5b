// Package store holds the sentinel errors shared by every persistence backend.
package store

import "errors"

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrConditionFailed is returned when a conditional write matched no record
	// because the record's current state no longer satisfies the guard.
	ErrConditionFailed = errors.New("store: condition failed")
)
