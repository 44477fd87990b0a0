package translation

import (
	"context"
	"time"

	"telegram-translation-bot/internal/domain/ports/adapter"
)

var _ adapter.TranslationProvider = (*NoopProvider)(nil)

// NoopProvider echoes the input back, tagged with the target language.
// Used for local/dev runs without any provider credentials.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

func (p *NoopProvider) Name() string { return "noop" }

func (p *NoopProvider) Translate(ctx context.Context, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	// Simulate slight processing time and respect ctx
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return adapter.TranslateResult{}, ctx.Err()
	}
	return adapter.TranslateResult{
		Text:       "[" + tr.TargetLang + "] " + tr.Text,
		Provider:   p.Name(),
		SourceLang: tr.SourceLang,
	}, nil
}
