package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "hotelmcp"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "external_requests_total", Help: "Outbound provider requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "endpoint"},
	)
	StoreEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "store_events_total", Help: "Session store hits/misses/sets/expiries."},
		[]string{"store", "event"},
	)
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "tool_calls_total", Help: "Tool invocations by outcome."},
		[]string{"tool", "outcome"},
	)
	DiscoveryDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "discovery_decisions_total", Help: "Facet discovery guard decisions."},
		[]string{"decision"},
	)
	FallbackEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "fallback_events_total", Help: "Sub-queries replaced with fallback payloads."},
		[]string{"operation", "section"},
	)
	DataIssues = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "data_issues_total", Help: "Non-fatal data quality conditions found while normalizing."},
		[]string{"issue"},
	)
)

// Serve starts a dedicated metrics listener when addr is set. The stdio
// binary has no HTTP surface, so this is its only way to expose metrics.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		StoreEvents, ToolCalls, DiscoveryDecisions, FallbackEvents, DataIssues)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveExternal records one provider attempt. status 0 means no response.
func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveStore(store, event string) { // event: hit|miss|set|expired|write|read|*_error
	StoreEvents.WithLabelValues(store, event).Inc()
}

func ObserveTool(tool, outcome string) {
	ToolCalls.WithLabelValues(tool, outcome).Inc()
}

func ObserveDiscovery(decision string) {
	DiscoveryDecisions.WithLabelValues(decision).Inc()
}

func ObserveFallback(operation, section string) {
	FallbackEvents.WithLabelValues(operation, section).Inc()
}

func ObserveDataIssue(issue string) {
	DataIssues.WithLabelValues(issue).Inc()
}
