package bookings

// BookingStatus is the per-booking lifecycle state. Transitions are
// driven exclusively by the checkout orchestrator and the
// cancellation/refund flow; nothing else writes booking status.
type BookingStatus string

const (
	StatusPending         BookingStatus = "PENDING"
	StatusAwaitingCapture BookingStatus = "AWAITING_CAPTURE"
	StatusConfirmed       BookingStatus = "CONFIRMED"
	StatusCancelled       BookingStatus = "CANCELLED"
	StatusFailed          BookingStatus = "FAILED"
	StatusRefunded        BookingStatus = "REFUNDED"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAwaitingCapture, StatusConfirmed,
		StatusCancelled, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

func (s BookingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further transitions
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// transitions is the allowed-successor table. Refunded is the only
// state reachable after Confirmed.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:         {StatusAwaitingCapture, StatusCancelled, StatusFailed},
	StatusAwaitingCapture: {StatusConfirmed, StatusCancelled, StatusFailed},
	StatusConfirmed:       {StatusRefunded},
}

// CanTransitionTo reports whether the transition is allowed
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
