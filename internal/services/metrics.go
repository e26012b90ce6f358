package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// transitions counts workflow transitions by flow (checkout, edit,
	// approval, cart) and transition name.
	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_transitions_total",
			Help: "Order workflow transitions.",
		},
		[]string{"flow", "transition"},
	)

	// notifyFailures counts notifications that could not be delivered.
	notifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_notifications_failed_total",
			Help: "Notifications that failed to deliver, by audience.",
		},
		[]string{"audience"},
	)

	ledgerFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbot_ledger_sync_failures_total",
			Help: "External ledger upserts that failed.",
		},
	)

	eventFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_events_failed_total",
			Help: "Lifecycle events that could not be published, by type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(transitions, notifyFailures, ledgerFailures, eventFailures)
}

// ExportSessions publishes the number of mid-dialogue conversations as a
// gauge on reg. Registering a second engine is an error.
func ExportSessions(reg prometheus.Registerer, e *Engine) error {
	g := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "orderbot_active_sessions",
			Help: "Conversations currently inside a checkout or edit dialogue.",
		},
		func() float64 { return float64(e.ActiveSessions()) },
	)
	if err := reg.Register(g); err != nil {
		var dup prometheus.AlreadyRegisteredError
		if errors.As(err, &dup) {
			return errors.New("services: session gauge already exported")
		}
		return err
	}
	return nil
}
