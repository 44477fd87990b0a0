package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		translationCallsLatencyMs,
		translationCharsTotal,
		translationFallbackTotal,
		providerHealthScore,
	)
}

var (
	translationCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "translation_calls_latency_ms",
			Help:    "Provider call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"provider", "success"},
	)

	translationCharsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_chars_total",
			Help: "Sum of source characters translated per provider.",
		},
		[]string{"provider"},
	)

	translationFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_fallback_total",
			Help: "Fallbacks from one provider to the next in the chain.",
		},
		[]string{"from", "to"},
	)

	providerHealthScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "translation_provider_health",
			Help: "Decayed success ratio per provider, 0 to 1.",
		},
		[]string{"provider"},
	)
)

func ObserveTranslationCall(provider string, chars int, latencyMs int64, success bool) {
	translationCallsLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
	if success {
		translationCharsTotal.WithLabelValues(norm(provider)).Add(float64(chars))
	}
}

func IncTranslationFallback(from, to string) {
	translationFallbackTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func SetProviderHealth(provider string, score float64) {
	providerHealthScore.WithLabelValues(norm(provider)).Set(score)
}
