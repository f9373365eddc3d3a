package services

import "errors"

var (
	// ErrBusy is returned when another operation is still in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrValidation is returned when user input is missing or unusable.
	ErrValidation = errors.New("invalid input")
)
