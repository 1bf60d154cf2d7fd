package availability

import "errors"

var (
	// ErrCapacityExceeded is returned when a hold would push
	// confirmed+held past the occurrence capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrHoldExpired is returned when confirming a hold past its expiry;
	// the caller must re-hold.
	ErrHoldExpired = errors.New("hold expired")

	// ErrHoldNotFound is returned when a hold id is unknown.
	ErrHoldNotFound = errors.New("hold not found")

	// ErrRecordNotFound is returned when no ledger record exists for an
	// occurrence.
	ErrRecordNotFound = errors.New("availability record not found")

	// ErrCapacityBelowConfirmed is returned when a capacity edit would
	// drop capacity under the already confirmed count.
	ErrCapacityBelowConfirmed = errors.New("capacity below confirmed count")
)
