// File: internal/infra/adapters/translation/multi_provider.go
package translation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/domain/ports/adapter"
	"telegram-translation-bot/internal/infra/metrics"
)

var _ adapter.TranslationProvider = (*MultiProvider)(nil)

// MultiProvider fans a translate call across the configured providers.
// Candidates are tried best-health first; a transient failure moves to
// the next candidate, a permanent one stops the chain immediately. Each
// attempt runs under its own call timeout so one hung provider cannot
// eat the whole request deadline.
type MultiProvider struct {
	mu          sync.Mutex
	byName      map[string]adapter.TranslationProvider
	order       []string // configured order, also the tie-breaker
	health      map[string]*model.ProviderHealth
	callTimeout time.Duration
	now         func() time.Time
}

// ProviderStatus is one row of the health snapshot.
type ProviderStatus struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func NewMultiProvider(providers []adapter.TranslationProvider, order []string, callTimeout, healthHalfLife time.Duration) *MultiProvider {
	m := &MultiProvider{
		byName:      make(map[string]adapter.TranslationProvider, len(providers)),
		health:      make(map[string]*model.ProviderHealth, len(providers)),
		callTimeout: callTimeout,
		now:         time.Now,
	}
	for _, p := range providers {
		if p != nil {
			m.byName[p.Name()] = p
		}
	}
	// keep only configured names that actually have a provider
	for _, name := range order {
		if m.byName[name] != nil {
			m.order = append(m.order, name)
			m.health[name] = model.NewProviderHealth(name, healthHalfLife, m.now())
		}
	}
	return m
}

func (m *MultiProvider) Name() string { return "auto" }

// Translate runs the chain in health order, honoring the request's
// preferred provider when one is set.
func (m *MultiProvider) Translate(ctx context.Context, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	return m.TranslateVia(ctx, tr.Provider, tr)
}

// TranslateVia tries the pinned provider first when the chat configured
// one, then the rest of the chain by health.
func (m *MultiProvider) TranslateVia(ctx context.Context, preferred string, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	candidates := m.ranked(preferred)
	if len(candidates) == 0 {
		return adapter.TranslateResult{}, fmt.Errorf("no providers configured: %w", domain.ErrProviderUnavailable)
	}

	var lastErr error
	prev := ""
	for _, name := range candidates {
		if prev != "" {
			metrics.IncTranslationFallback(prev, name)
		}
		prov := m.byName[name]

		start := time.Now()
		cctx, cancel := context.WithTimeout(ctx, m.callTimeout)
		res, err := prov.Translate(cctx, tr)
		cancel()
		latency := time.Since(start).Milliseconds()

		m.observe(name, err == nil)
		metrics.ObserveTranslationCall(name, len(tr.Text), latency, err == nil)

		if err == nil {
			return res, nil
		}
		if domain.IsPermanent(err) {
			return adapter.TranslateResult{}, err
		}
		if ctx.Err() != nil {
			// the request deadline itself ran out, not just this call
			return adapter.TranslateResult{}, fmt.Errorf("translate: %v: %w", ctx.Err(), domain.ErrProviderUnavailable)
		}
		lastErr = err
		prev = name
	}
	return adapter.TranslateResult{}, lastErr
}

// ranked returns candidate names best-health first. A known preferred
// provider jumps the queue; ties keep the configured order.
func (m *MultiProvider) ranked(preferred string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	type scored struct {
		name  string
		score float64
	}
	list := make([]scored, 0, len(m.order))
	for _, name := range m.order {
		list = append(list, scored{name: name, score: m.health[name].Score(now)})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })

	out := make([]string, 0, len(list)+1)
	if preferred != "" && m.byName[preferred] != nil {
		out = append(out, preferred)
	}
	for _, s := range list {
		if s.name == preferred {
			continue
		}
		out = append(out, s.name)
	}
	return out
}

func (m *MultiProvider) observe(name string, success bool) {
	m.mu.Lock()
	h := m.health[name]
	var score float64
	if h != nil {
		h.Observe(success, m.now())
		score = h.Score(m.now())
	}
	m.mu.Unlock()
	if h != nil {
		metrics.SetProviderHealth(name, score)
	}
}

// HealthSnapshot reports the current chain order with scores, for the
// /status command and the ops API.
func (m *MultiProvider) HealthSnapshot() []ProviderStatus {
	names := m.ranked("")
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make([]ProviderStatus, 0, len(names))
	for _, name := range names {
		if h := m.health[name]; h != nil {
			out = append(out, ProviderStatus{Name: name, Score: h.Score(now)})
		}
	}
	return out
}
