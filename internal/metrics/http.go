package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outbound HTTP metrics
var (
	// HTTPRequestsTotal counts outbound HTTP requests by target, method and status code
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_client_requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"target", "method", "status"},
	)

	// HTTPRequestDuration records outbound HTTP latency in seconds
	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_request_duration_seconds",
			Help:      "Outbound HTTP request latency in seconds",
			// Buckets: 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"target", "method"},
	)

	// HTTPRequestsInFlight tracks outbound requests awaiting a reply
	HTTPRequestsInFlight = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_client_requests_in_flight",
			Help:      "Current number of outbound HTTP requests awaiting a response",
		},
	)
)

type roundTripper struct {
	target string
	next   http.RoundTripper
}

// Transport wraps next so every outbound request is counted and timed under
// the given target label. A nil next uses http.DefaultTransport.
func Transport(target string, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &roundTripper{target: target, next: next}
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	HTTPRequestsInFlight.Inc()
	defer HTTPRequestsInFlight.Dec()

	resp, err := rt.next.RoundTrip(req)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	HTTPRequestsTotal.WithLabelValues(rt.target, req.Method, status).Inc()
	HTTPRequestDuration.WithLabelValues(rt.target, req.Method).Observe(time.Since(start).Seconds())

	return resp, err
}
