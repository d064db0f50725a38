// Package metrics exposes Prometheus instruments for graph builds, searches,
// endpoint sampling and guardrail activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SearchTotal counts finished searches by terminal status
	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadloop_search_total",
			Help: "Total number of finished searches",
		},
		[]string{"status"},
	)

	// SearchSteps tracks expansions per finished search
	SearchSteps = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roadloop_search_steps",
			Help:    "Expansions performed per finished search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	// SampleTotal counts endpoint draws by whether the minimum separation was met
	SampleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadloop_sample_total",
			Help: "Total number of endpoint samplings",
		},
		[]string{"met"},
	)

	// SampleTries tracks draws used per sampling
	SampleTries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roadloop_sample_tries",
			Help:    "Draws used per endpoint sampling",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// GuardrailEvents counts events observed by the guardrail
	GuardrailEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadloop_guardrail_events_total",
			Help: "Total number of guardrail events",
		},
		[]string{"event"},
	)

	// GuardrailTriggers counts relaxation triggers
	GuardrailTriggers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadloop_guardrail_triggers_total",
			Help: "Total number of guardrail relaxation triggers",
		},
	)

	// GraphNodes tracks node counts of the last built graph per stage
	GraphNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "roadloop_graph_nodes",
			Help: "Node count of the loaded graph per pipeline stage",
		},
		[]string{"stage"},
	)

	// GraphEdges tracks directed edge counts of the last built graph per stage
	GraphEdges = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "roadloop_graph_edges",
			Help: "Directed edge count of the loaded graph per pipeline stage",
		},
		[]string{"stage"},
	)

	// RouteRequests counts HTTP route requests by result code
	RouteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadloop_route_requests_total",
			Help: "Total number of route requests",
		},
		[]string{"code"},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(SearchTotal)
	prometheus.MustRegister(SearchSteps)
	prometheus.MustRegister(SampleTotal)
	prometheus.MustRegister(SampleTries)
	prometheus.MustRegister(GuardrailEvents)
	prometheus.MustRegister(GuardrailTriggers)
	prometheus.MustRegister(GraphNodes)
	prometheus.MustRegister(GraphEdges)
	prometheus.MustRegister(RouteRequests)
}

// ObserveSearch records a finished search.
func ObserveSearch(status string, steps int) {
	SearchTotal.WithLabelValues(status).Inc()
	SearchSteps.Observe(float64(steps))
}

// ObserveSample records one endpoint sampling.
func ObserveSample(met bool, tries int) {
	label := "false"
	if met {
		label = "true"
	}
	SampleTotal.WithLabelValues(label).Inc()
	SampleTries.Observe(float64(tries))
}

// ObserveGraph records graph size for a pipeline stage.
func ObserveGraph(stage string, nodes, edges int) {
	GraphNodes.WithLabelValues(stage).Set(float64(nodes))
	GraphEdges.WithLabelValues(stage).Set(float64(edges))
}
