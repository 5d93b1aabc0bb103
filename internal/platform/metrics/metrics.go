package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	MatchesCreated     prometheus.Counter
	OffersCreated      prometheus.Counter
	EventsPublished    prometheus.Counter
	RegistryCallErrors *prometheus.CounterVec
	MatchingPassSecs   prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers metrics against the given registerer. Tests pass a fresh
// registry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MatchesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_matches_created_total",
			Help: "Total number of matches persisted by the matching engine",
		}),
		OffersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_offers_created_total",
			Help: "Total number of offers created",
		}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_match_events_published_total",
			Help: "Total number of match events published to the bus",
		}),
		RegistryCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeline_registry_call_errors_total",
			Help: "Upstream registry call failures by registry",
		}, []string{"registry"}),
		MatchingPassSecs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lifeline_matching_pass_duration_seconds",
			Help:    "Wall-clock duration of a full matching pass",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
