package civ

import "errors"

var (
	// ErrNotFound indicates the referenced civilization doesn't exist.
	ErrNotFound = errors.New("civilization not found")
	// ErrAlreadyExists indicates the actor already founded a civilization.
	ErrAlreadyExists = errors.New("civilization already exists")
	// ErrInsufficientResources indicates a delta would drive a resource
	// negative; the ledger rejects it without mutating anything.
	ErrInsufficientResources = errors.New("insufficient resources")
	// ErrInvalidIdeology indicates an unknown ideology name.
	ErrInvalidIdeology = errors.New("invalid ideology")
	// ErrIdeologyLocked indicates the ideology was already chosen.
	ErrIdeologyLocked = errors.New("ideology already selected")
	// ErrItemMissing indicates the civilization doesn't hold the item.
	ErrItemMissing = errors.New("item not held")
	// ErrInvalidInput indicates invalid founding input.
	ErrInvalidInput = errors.New("invalid civilization input")
)
