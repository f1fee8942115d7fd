package repository

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrForeignKey     = errors.New("referenced row does not exist")
	ErrNotEnough      = errors.New("not enough tickets available")
	ErrNothingChanged = errors.New("no matching rows")
)
