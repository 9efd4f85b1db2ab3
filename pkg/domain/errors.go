package domain

import "errors"

// Configuration-shape errors. These are always fatal to the operation that
// triggered the load.
var (
	ErrNotADirectory     = errors.New("not a valid directory")
	ErrFileNotFound      = errors.New("not a valid file path")
	ErrMalformedDocument = errors.New("malformed settings document")
	ErrMissingKey        = errors.New("missing settings key")
)

// ErrEmptySequence is returned when a random choice is requested from a
// configured list that has no entries.
var ErrEmptySequence = errors.New("cannot choose from an empty sequence")

// ErrNotImplemented is returned by the sentinel admin command handler used
// when a command has no resolvable handler.
var ErrNotImplemented = errors.New("operation not implemented")

// ErrConfigInvalid is returned when bootstrap configuration fails validation.
var ErrConfigInvalid = errors.New("invalid configuration")
