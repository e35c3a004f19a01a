// Package metrics holds the Prometheus collectors shared by the domain packages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UnlocksTotal counts clue unlock attempts by terminal state.
	UnlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzhunt",
		Name:      "clue_unlocks_total",
		Help:      "Clue unlock attempts by terminal state.",
	}, []string{"state"})

	// CreditsSpentTotal sums credits debited for unlocks.
	CreditsSpentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "buzzhunt",
		Name:      "credits_spent_total",
		Help:      "Credits debited by clue unlocks.",
	})

	// RefundsTotal counts compensating refunds by outcome.
	RefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzhunt",
		Name:      "credit_refunds_total",
		Help:      "Compensating refunds by outcome.",
	}, []string{"outcome"})

	// AreasGeneratedTotal counts search areas created by Buzz actions.
	AreasGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "buzzhunt",
		Name:      "areas_generated_total",
		Help:      "Search areas created.",
	})

	// AreaRadiusKm observes issued radii.
	AreaRadiusKm = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "buzzhunt",
		Name:      "area_radius_km",
		Help:      "Radius of issued search areas.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 25, 50, 75, 100},
	})

	// RealtimeSessions tracks connected websocket sessions on this instance.
	RealtimeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "buzzhunt",
		Name:      "realtime_sessions",
		Help:      "Connected websocket sessions.",
	})

	// RealtimeEventsTotal counts fan-out results (sent, dropped, publish_failed).
	RealtimeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzhunt",
		Name:      "realtime_events_total",
		Help:      "Realtime event deliveries by result.",
	}, []string{"result"})

	// PanicsTotal counts handler panics caught by the recover middleware.
	PanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzhunt",
		Name:      "http_panics_total",
		Help:      "Recovered HTTP handler panics by route.",
	}, []string{"route"})

	// InferencesTotal counts region inferences by confidence.
	InferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzhunt",
		Name:      "inferences_total",
		Help:      "Location inferences by confidence tier.",
	}, []string{"confidence"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
