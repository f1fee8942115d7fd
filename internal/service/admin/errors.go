package admin

import (
	"errors"
)

var (
	ErrVenueConflict = errors.New("venue already exists")
	ErrVenueNotFound = errors.New("venue does not exist")
	ErrEventNotFound = errors.New("event not found")
)
