package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. The postgres store
// returns the same value.
var ErrNotFound = errors.New("not found")
