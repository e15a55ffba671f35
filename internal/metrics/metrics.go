package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all EventHub client metrics
const namespace = "eventhub"

// Registry is the process registry for all client metrics
var Registry = prometheus.NewRegistry()

// AppInfo exposes version information as labels (value is always 1)
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Client version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// SourceRequestsTotal counts listing and mutation calls by source and outcome
var SourceRequestsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_requests_total",
		Help:      "Total number of calls made against an event source",
	},
	[]string{"source", "operation", "outcome"}, // source: events|catalog, outcome: success|validation|network|server|not_found|stale
)

// SourceRequestDuration records source call latency
var SourceRequestDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "source_request_duration_seconds",
		Help:      "Event source call latency in seconds",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	},
	[]string{"source", "operation"},
)

// StaleResponsesTotal counts listing replies dropped because a newer query was issued
var StaleResponsesTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Total number of listing responses discarded as superseded",
	},
	[]string{"source"},
)

// ValidationRejectionsTotal counts drafts refused before any network call
var ValidationRejectionsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_rejections_total",
		Help:      "Total number of drafts rejected by local validation",
	},
	[]string{"field"},
)

// RecordSourceCall records one completed call against a source.
func RecordSourceCall(source, operation, outcome string, start time.Time) {
	SourceRequestsTotal.WithLabelValues(source, operation, outcome).Inc()
	SourceRequestDuration.WithLabelValues(source, operation).Observe(time.Since(start).Seconds())
}

// Init registers runtime collectors and sets version information
func Init(version, commit, buildDate string) {
	// Register default Go metrics (memory, goroutines, GC, etc.)
	_ = Registry.Register(collectors.NewGoCollector())

	// Register process metrics (CPU, memory, file descriptors)
	_ = Registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
