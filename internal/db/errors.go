package db

import "errors"

// ErrIndexNotFound is returned when the FT index does not exist.
var ErrIndexNotFound = errors.New("db: index not found")

// Op constants map to Valkey/Redis command names for error context.
const (
	OpPing      = "PING"
	OpIndexInfo = "FT.INFO"
	OpSearch    = "FT.SEARCH"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
