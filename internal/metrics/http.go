// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payfort_http_request_duration_seconds",
		Help:    "HTTP request duration by route, method and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payfort_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(route, method, status string, seconds float64) {
	httpRequestDuration.WithLabelValues(route, method, status).Observe(seconds)
}

// InFlight adjusts the in-flight gauge by delta.
func InFlight(delta float64) { httpRequestsInFlight.Add(delta) }
