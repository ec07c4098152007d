package usecase

import "errors"

// Handlers translate these with errors.Is. Services always wrap them with a
// message the client can read.
var (
	ErrNotFound                 = errors.New("not found")
	ErrInvalidInput             = errors.New("invalid input")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrConflict                 = errors.New("conflict")
	ErrRequestInFlight          = errors.New("request already in flight")
)
