package artifact

import "errors"

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("artifact: not found")
