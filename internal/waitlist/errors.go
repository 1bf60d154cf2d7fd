package waitlist

import "errors"

var (
	// ErrEntryNotFound is returned when an entry id is unknown.
	ErrEntryNotFound = errors.New("waitlist entry not found")

	// ErrAlreadyQueued is returned when a buyer joins the same
	// occurrence's queue twice.
	ErrAlreadyQueued = errors.New("buyer already on waitlist")

	// ErrQueueFull is returned when the occurrence queue hit its cap.
	ErrQueueFull = errors.New("waitlist is full")

	// ErrQuantityTooLarge is returned when the requested quantity
	// exceeds the per-buyer cap.
	ErrQuantityTooLarge = errors.New("requested quantity exceeds waitlist limit")
)
