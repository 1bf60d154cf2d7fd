package checkout

import "errors"

var (
	// ErrInsufficientAvailability is returned when any line item's hold
	// fails. All already-acquired holds are released first.
	ErrInsufficientAvailability = errors.New("insufficient availability")

	// ErrSessionExpired is returned when acting on a session past its
	// deadline or already expired.
	ErrSessionExpired = errors.New("checkout session expired")

	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrInvalidSessionState is returned when an operation does not
	// apply to the session's current status.
	ErrInvalidSessionState = errors.New("invalid checkout session state")

	// ErrOccurrenceNotBookable is returned for line items targeting an
	// unpublished or retired occurrence.
	ErrOccurrenceNotBookable = errors.New("occurrence is not bookable")
)
