package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		updatesReceivedTotal,
		updatesDedupedTotal,
		updatesRejectedTotal,
		updateQueueDepth,
		webhookAckLatencyMs,
	)
}

var (
	updatesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_updates_received_total",
			Help: "Updates accepted into the queue, per frontend.",
		},
		[]string{"mode"},
	)

	updatesDedupedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_updates_deduped_total",
			Help: "Re-delivered updates suppressed by the recent-history window.",
		},
		[]string{"mode"},
	)

	updatesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_updates_rejected_total",
			Help: "Updates not enqueued, per frontend and reason.",
		},
		[]string{"mode", "reason"}, // reason: overload, malformed, ignored
	)

	updateQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_queue_depth",
			Help: "Current number of updates waiting in the ingestion queue.",
		},
	)

	webhookAckLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_webhook_ack_latency_ms",
			Help:    "Time to acknowledge a webhook delivery in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 200, 400, 800},
		},
	)
)

func IncUpdateReceived(mode string) {
	updatesReceivedTotal.WithLabelValues(norm(mode)).Inc()
}

func IncUpdateDeduped(mode string) {
	updatesDedupedTotal.WithLabelValues(norm(mode)).Inc()
}

func IncUpdateRejected(mode, reason string) {
	updatesRejectedTotal.WithLabelValues(norm(mode), norm(reason)).Inc()
}

func SetQueueDepth(n int) {
	updateQueueDepth.Set(float64(n))
}

func ObserveWebhookAck(latencyMs int64) {
	webhookAckLatencyMs.Observe(float64(latencyMs))
}
