package storage

import "errors"

// ErrNotFound indicates a requested row does not exist. Absence is an
// explicit signal here, never an empty result: callers (and the HTTP layer)
// branch on it with errors.Is.
var ErrNotFound = errors.New("not found")
