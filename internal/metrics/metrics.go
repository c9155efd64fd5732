package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindforge_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GraphNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mindforge_graph_nodes",
			Help: "Number of nodes currently in the knowledge graph.",
		},
	)

	GraphEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mindforge_graph_edges",
			Help: "Number of edges currently in the knowledge graph.",
		},
	)

	GraphEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mindforge_graph_events_dropped_total",
			Help: "Change notifications discarded because a subscriber queue was full.",
		},
	)

	MessagesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindforge_messages_processed_total",
			Help: "Total number of conversation messages processed.",
		},
		[]string{"intent"},
	)

	PipelineFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mindforge_pipeline_failures_total",
			Help: "Message pipeline runs that ended in the apology path.",
		},
	)

	IntentClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindforge_intent_classifications_total",
			Help: "Intent classifications by source (provider or fallback).",
		},
		[]string{"source"},
	)

	PersistenceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindforge_persistence_failures_total",
			Help: "Change-log operations that failed and were logged only.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GraphNodes,
		GraphEdges,
		GraphEventsDropped,
		MessagesProcessedTotal,
		PipelineFailuresTotal,
		IntentClassificationsTotal,
		PersistenceFailuresTotal,
	)
}
