package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("dagclosure.engine")

// Metrics definitions
var (
	rewirePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagclosure_rewire_passes_total",
		Help: "Total number of committed rewiring passes by direction of the flip.",
	}, []string{"direction"})

	bridgingLegs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagclosure_bridging_legs_total",
		Help: "Total number of closure records written by rewiring passes.",
	}, []string{"action"})

	passSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dagclosure_rewire_pass_legs",
		Help:    "Number of bridging legs written per rewiring pass.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagclosure_rejections_total",
		Help: "Total number of validation violations by rule.",
	}, []string{"rule"})

	invariantFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dagclosure_invariant_failures_total",
		Help: "Total number of mutations aborted by an invariant error.",
	})

	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dagclosure_mutation_seconds",
		Help:    "Time spent in one client mutation, including the store transaction.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// passStats counts the bridging-leg writes of one rewiring pass.
type passStats struct {
	promote  bool
	inserted int
	updated  int
	deleted  int
}

func (p passStats) total() int { return p.inserted + p.updated + p.deleted }

func (p passStats) observe() {
	dir := "demote"
	if p.promote {
		dir = "promote"
	}
	rewirePasses.WithLabelValues(dir).Inc()
	bridgingLegs.WithLabelValues("insert").Add(float64(p.inserted))
	bridgingLegs.WithLabelValues("update").Add(float64(p.updated))
	bridgingLegs.WithLabelValues("delete").Add(float64(p.deleted))
	passSize.Observe(float64(p.total()))
}
