package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voyago_checkout_sessions_started_total",
		Help: "Checkout sessions successfully opened with all holds acquired",
	})

	sessionsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voyago_checkout_sessions_settled_total",
		Help: "Checkout sessions captured and confirmed",
	})

	sessionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voyago_checkout_sessions_failed_total",
		Help: "Checkout sessions that ended in failure, by stage",
	}, []string{"stage"})

	sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voyago_checkout_sessions_expired_total",
		Help: "Checkout sessions expired past their deadline",
	})

	holdsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voyago_checkout_holds_rejected_total",
		Help: "Checkout attempts rejected for insufficient availability",
	})
)
