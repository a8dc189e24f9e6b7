// Package metrics holds the gateway's Prometheus collectors.
//
// Collectors are package-level so any layer can record without plumbing;
// MustRegister attaches them to a registry (the server uses its own registry
// so tests can build several servers in one process).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accessai_http_requests_total",
		Help: "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accessai_http_request_duration_seconds",
		Help:    "End-to-end handler duration.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"route"})

	ActiveRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "accessai_active_requests",
		Help: "Current number of in-flight requests.",
	})

	UpstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accessai_upstream_duration_seconds",
		Help:    "Duration of calls to the LLM and speech providers.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"provider", "outcome"})

	RateLimitDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accessai_rate_limit_dropped_total",
		Help: "Requests rejected by the per-IP rate limiter.",
	})

	PointsAwardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accessai_points_awarded_total",
		Help: "Points granted to users, by source.",
	}, []string{"source"})

	GuestChatsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accessai_guest_chats_total",
		Help: "Chat completions served to guests (each consumes one credit).",
	})
)

// MustRegister registers every collector. It panics on double registration,
// so call it once per registry.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveRequests,
		UpstreamDuration,
		RateLimitDroppedTotal,
		PointsAwardedTotal,
		GuestChatsTotal,
	)
}

// ObserveUpstream records one upstream call.
func ObserveUpstream(provider string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamDuration.WithLabelValues(provider, outcome).Observe(time.Since(start).Seconds())
}
