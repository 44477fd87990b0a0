package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		dispatchRequestsTotal,
		dispatchRetriesTotal,
		dispatchLatencyMs,
		dispatchActiveLanes,
		dispatchBacklogDroppedTotal,
		dispatchExpiredTotal,
	)
}

var (
	dispatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_requests_total",
			Help: "Finished translation requests per terminal outcome.",
		},
		[]string{"outcome"}, // succeeded, failed, duplicate
	)

	dispatchRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_retries_total",
			Help: "Retry attempts scheduled after transient failures.",
		},
		[]string{"attempt"},
	)

	dispatchLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_latency_ms",
			Help:    "Enqueue-to-terminal latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"outcome"},
	)

	dispatchActiveLanes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_active_lanes",
			Help: "Number of chats with a live dispatch lane.",
		},
	)

	dispatchBacklogDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_backlog_dropped_total",
			Help: "Requests rejected because a chat backlog was full.",
		},
	)

	dispatchExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_expired_total",
			Help: "Requests abandoned because their deadline passed.",
		},
	)
)

func IncDispatchOutcome(outcome string) {
	dispatchRequestsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncDispatchRetry(attempt int) {
	dispatchRetriesTotal.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

func ObserveDispatchLatency(outcome string, latencyMs int64) {
	dispatchLatencyMs.WithLabelValues(norm(outcome)).Observe(float64(latencyMs))
}

func SetActiveLanes(n int) {
	dispatchActiveLanes.Set(float64(n))
}

func IncBacklogDropped() {
	dispatchBacklogDroppedTotal.Inc()
}

func IncDispatchExpired() {
	dispatchExpiredTotal.Inc()
}
