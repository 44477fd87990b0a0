package translation

import (
	"context"
	"fmt"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TranslationProvider = (*limitedProvider)(nil)

type limitedProvider struct {
	inner adapter.TranslationProvider
	sem   chan struct{}
}

// NewLimitedProvider caps concurrent calls into inner. Waiting for a
// slot respects the call context, so a saturated provider shows up as a
// transient failure instead of a stuck worker.
func NewLimitedProvider(inner adapter.TranslationProvider, maxConcurrent int) adapter.TranslationProvider {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedProvider{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedProvider) Name() string { return l.inner.Name() }

func (l *limitedProvider) Translate(ctx context.Context, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	select {
	case l.sem <- struct{}{}:
		defer func() { <-l.sem }()
	case <-ctx.Done():
		return adapter.TranslateResult{}, fmt.Errorf("%s saturated: %w", l.inner.Name(), domain.ErrProviderUnavailable)
	}
	return l.inner.Translate(ctx, tr)
}
