// Package repository defines the persistence error contract shared by all
// storage implementations. The interfaces themselves live next to the
// domain types they persist.
package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with an existing row
	ErrConflict = errors.New("conflict: entity already exists")
)
