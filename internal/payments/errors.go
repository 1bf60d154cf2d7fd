package payments

import "errors"

var (
	// ErrOrderCreationFailed is returned on a non-2xx order-create
	// response or a response missing its approve link. Callers must fail
	// the checkout rather than retry; a blind retry can double-charge.
	ErrOrderCreationFailed = errors.New("gateway order creation failed")

	// ErrCaptureFailed is returned on a non-2xx capture response. Final
	// for the attempt; capture is never retried automatically.
	ErrCaptureFailed = errors.New("gateway capture failed")

	// ErrTokenAcquisition is returned when the OAuth token exchange fails.
	ErrTokenAcquisition = errors.New("gateway token acquisition failed")
)
