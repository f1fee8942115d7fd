package ticketing

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrAlreadyGenerated   = errors.New("tickets already generated for event")
	ErrNoVenue            = errors.New("event has no venue with seats")
	ErrInvalidEvent       = errors.New("invalid event")
	ErrReferenceExhausted = errors.New("could not allocate unique ticket references")
)

// BillingError reports a failed billing provider call. The event mutation it
// belongs to must be aborted.
type BillingError struct {
	Op  string
	Err error
	// Inconsistency is set when cleaning up after the failure left a billing
	// resource behind.
	Inconsistency *InconsistencyError
}

func (e *BillingError) Error() string {
	return fmt.Sprintf("billing %s: %v", e.Op, e.Err)
}

func (e *BillingError) Unwrap() error { return e.Err }

// PersistenceError reports a failed read or write of generator state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InconsistencyError describes a billing resource whose state no longer
// matches the database.
type InconsistencyError struct {
	EventID    int64
	Resource   string
	ResourceID string
	Err        error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("billing %s %q of event %d left inconsistent: %v", e.Resource, e.ResourceID, e.EventID, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }
