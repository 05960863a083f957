// Package observability carries the prometheus surface of the counter
// service: one counter and one histogram per canister action, plus the gin
// middleware for plain HTTP request accounting.
package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	counterActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "counter",
			Subsystem: "canister",
			Name:      "actions_total",
			Help:      "Canister actions dispatched.",
		},
		[]string{"action", "success"},
	)
	counterActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "counter",
			Subsystem: "canister",
			Name:      "action_duration_seconds",
			Help:      "Canister action duration, submission through finality.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action", "success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "counter",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "counter",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(counterActions, counterActionDuration, httpRequests, httpDuration)
	})
}

func RecordCanisterAction(action string, success bool, duration time.Duration) {
	labels := []string{action, strconv.FormatBool(success)}
	counterActions.WithLabelValues(labels...).Inc()
	counterActionDuration.WithLabelValues(labels...).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	httpRequests.WithLabelValues(labels...).Inc()
	httpDuration.WithLabelValues(labels...).Observe(duration.Seconds())
}
