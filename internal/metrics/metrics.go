package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventsync_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventsync_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventsync_extractions_total",
		Help: "Total number of screenshot extraction requests by outcome.",
	}, []string{"outcome"})

	extractedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventsync_extracted_events_total",
		Help: "Total number of candidate events returned by the extraction model.",
	})

	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventsync_commits_total",
		Help: "Total number of staging commits by aggregate outcome.",
	}, []string{"outcome"})

	commitEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventsync_commit_events_total",
		Help: "Total number of per-event calendar writes by result.",
	}, []string{"result"})

	dbLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventsync_db_latency_seconds",
		Help:    "Histogram of telemetry database operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// Middleware records request counts and latencies, labeled by chi route
// pattern.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// The route pattern is only known once chi has matched.
			route := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, route).Inc()
			httpRequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
				Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveExtraction records one extraction request and how many candidate
// events it produced.
func ObserveExtraction(outcome string, eventCount int) {
	extractionsTotal.WithLabelValues(outcome).Inc()
	if eventCount > 0 {
		extractedEventsTotal.Add(float64(eventCount))
	}
}

// ObserveCommit records a commit attempt's aggregate outcome and its
// per-event results.
func ObserveCommit(outcome string, succeeded, failed int) {
	commitsTotal.WithLabelValues(outcome).Inc()
	if succeeded > 0 {
		commitEventsTotal.WithLabelValues("success").Add(float64(succeeded))
	}
	if failed > 0 {
		commitEventsTotal.WithLabelValues("failure").Add(float64(failed))
	}
}

// ObserveDBLatency records telemetry database latency for an operation.
func ObserveDBLatency(operation string, start time.Time) {
	dbLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
