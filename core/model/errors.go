package model

import "errors"

// ErrInvalidArgument is returned when a caller supplies a value outside the
// accepted domain (empty merge input, out of range preferences, malformed
// clock strings).
var ErrInvalidArgument = errors.New("invalid argument")
