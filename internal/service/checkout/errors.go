package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrInvalidQuantity = errors.New("invalid ticket quantity")
	ErrNoReferences    = errors.New("no ticket references given")
	ErrHoldNotFound    = errors.New("some tickets are not held by the user or the hold expired")
	ErrNothingToCancel = errors.New("no cancellable tickets")
)

type NotEnoughTicketsError struct {
	Requested int
	Time      string
}

func (e NotEnoughTicketsError) Error() string {
	return fmt.Sprintf("fewer than %d tickets available at %s", e.Requested, e.Time)
}
