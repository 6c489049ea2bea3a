package lifecycle

import (
	"errors"

	"github.com/brasil-legalize/case-engine/internal/store"
)

// Every error returned by the engine wraps one of these; match with errors.Is.
// All of them are detected before anything is written.
var (
	// ErrNotFound: a referenced lead, client, case, document or link does not exist.
	ErrNotFound = store.ErrNotFound
	// ErrConflict: a concurrent writer changed the row; safe to retry.
	ErrConflict = store.ErrConflict

	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidTarget    = errors.New("status does not belong to phase")
	ErrInvalidState     = errors.New("invalid state for operation")
	ErrAlreadyConverted = errors.New("lead already converted")
	ErrMissingReason    = errors.New("rejection reason required")
	ErrEmptyRequest     = errors.New("no document types requested")
	ErrInvalidInput     = errors.New("invalid input")
)
