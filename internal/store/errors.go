package store

import "errors"

// ErrNotFound is returned when a requested row does not exist, or exists but
// is not visible to the requesting owner. Callers cannot tell the two apart.
var ErrNotFound = errors.New("not found")
