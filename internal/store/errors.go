package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyExists is returned when a channel name is already taken.
// Duplicate dependency edges are not errors: they are ignored.
var ErrAlreadyExists = errors.New("store: already exists")
