package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrRunInProgress is returned when a lookup is started while another
	// is still running on the same controller.
	ErrRunInProgress = errors.New("a lookup is already running")
	// ErrNotSignedIn is returned for persistence commands issued as a guest.
	ErrNotSignedIn = errors.New("sign in to save batches")
	// ErrBatchOutOfRange is returned by LoadBatch for an index outside the
	// current batch list.
	ErrBatchOutOfRange = errors.New("batch index out of range")
)

// PersistenceError wraps a failed store call. The controller state is left
// as it was before the call.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s batch: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
