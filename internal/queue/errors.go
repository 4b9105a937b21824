package queue

import (
	"errors"
	"fmt"
)

// ErrPersistence marks failures to read or write the durable queue record.
var ErrPersistence = errors.New("queue persistence failed")

// ErrUnsupportedVersion reports a persisted document written by an
// incompatible release.
var ErrUnsupportedVersion = errors.New("unsupported queue document version")

// PersistenceError reports that a queue mutation did not durably apply. The
// in-memory queue has already been restored to its previous state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// ErrorKind classifies the error for status mapping.
func (e *PersistenceError) ErrorKind() string {
	return "persistence"
}
