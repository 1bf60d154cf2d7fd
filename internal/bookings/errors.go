package bookings

import "errors"

var (
	// ErrBookingNotFound is returned when a booking id or ref is unknown.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidTransition is returned for a status change the lifecycle
	// table does not allow. Always a caller bug, logged loudly.
	ErrInvalidTransition = errors.New("invalid booking status transition")
)
