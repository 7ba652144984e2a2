package store

import (
	"errors"
	"fmt"
)

// ErrMalformed indicates a persisted document could not be decoded.
var ErrMalformed = errors.New("malformed document")

// PersistenceError reports a failed write of a document to disk.
// The in-memory change that preceded the write is kept; the next
// successful write of the same document makes it durable.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
