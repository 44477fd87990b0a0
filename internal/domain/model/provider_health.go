package model

import (
	"math"
	"time"
)

// ProviderHealth tracks recent success and failure of one translation
// provider with exponentially decaying counters, so a provider that was
// broken an hour ago is not punished forever. Not safe for concurrent
// use; callers guard it.
type ProviderHealth struct {
	Name string

	successes float64
	failures  float64
	lastDecay time.Time
	halfLife  time.Duration
}

func NewProviderHealth(name string, halfLife time.Duration, now time.Time) *ProviderHealth {
	return &ProviderHealth{Name: name, halfLife: halfLife, lastDecay: now}
}

func (h *ProviderHealth) decay(now time.Time) {
	if h.halfLife <= 0 {
		return
	}
	elapsed := now.Sub(h.lastDecay)
	if elapsed <= 0 {
		return
	}
	factor := math.Pow(0.5, float64(elapsed)/float64(h.halfLife))
	h.successes *= factor
	h.failures *= factor
	h.lastDecay = now
}

// Observe records one call outcome at now.
func (h *ProviderHealth) Observe(success bool, now time.Time) {
	h.decay(now)
	if success {
		h.successes++
	} else {
		h.failures++
	}
}

// Score returns the smoothed success ratio in (0, 1). A provider nobody
// has called yet scores 0.5, so fresh providers are neither preferred
// nor shunned.
func (h *ProviderHealth) Score(now time.Time) float64 {
	h.decay(now)
	return (h.successes + 1) / (h.successes + h.failures + 2)
}
