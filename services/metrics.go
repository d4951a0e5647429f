package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/CrowderSoup/scrumlr-sync/board"
)

var (
	actionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scrumlr_sync",
		Name:      "actions_applied_total",
		Help:      "Actions applied to the local board state, by type.",
	}, []string{"type"})

	realtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scrumlr_sync",
		Name:      "realtime_events_total",
		Help:      "Realtime messages received, by outcome.",
	}, []string{"outcome"})

	rollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scrumlr_sync",
		Name:      "rollbacks_total",
		Help:      "Optimistic mutations rolled back after a failed request.",
	}, []string{"operation"})

	toastsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scrumlr_sync",
		Name:      "toasts_total",
		Help:      "Error notifications raised, by operation.",
	}, []string{"operation"})

	pendingMutations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scrumlr_sync",
		Name:      "pending_mutations",
		Help:      "Mutations waiting for the backend to answer.",
	})

	mirrorClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scrumlr_sync",
		Name:      "mirror_clients",
		Help:      "Viewers connected to the local mirror.",
	})
)

// CountAction is a store observer feeding the actions counter
func CountAction(a board.Action, _ uint64) {
	actionsApplied.WithLabelValues(a.Type()).Inc()
}
