package checkout

// SessionStatus is the checkout session lifecycle state
type SessionStatus string

const (
	StatusBuilding        SessionStatus = "BUILDING"
	StatusPendingApproval SessionStatus = "PENDING_APPROVAL"
	StatusCapturing       SessionStatus = "CAPTURING"
	StatusSettled         SessionStatus = "SETTLED"
	StatusFailed          SessionStatus = "FAILED"
	StatusExpired         SessionStatus = "EXPIRED"
	StatusCancelled       SessionStatus = "CANCELLED"
)

func (s SessionStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the session has resolved
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case StatusSettled, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// CanExpire reports whether the session may still time out. Capturing
// sessions never expire; a dispatched capture runs to a definitive
// outcome before state commits.
func (s SessionStatus) CanExpire() bool {
	return s == StatusBuilding || s == StatusPendingApproval
}

var sessionTransitions = map[SessionStatus][]SessionStatus{
	StatusBuilding:        {StatusPendingApproval, StatusFailed, StatusExpired, StatusCancelled},
	StatusPendingApproval: {StatusCapturing, StatusFailed, StatusExpired, StatusCancelled},
	StatusCapturing:       {StatusSettled, StatusFailed},
}

// CanTransitionTo reports whether the transition is allowed
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
