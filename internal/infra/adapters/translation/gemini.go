// File: internal/infra/adapters/translation/gemini.go
package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/ports/adapter"
)

var _ adapter.TranslationProvider = (*GeminiProvider)(nil)

type GeminiProvider struct {
	client *genai.Client
	model  string
	maxOut int
}

// NewGeminiProvider creates a Gemini-backed provider using the official SDK.
func NewGeminiProvider(ctx context.Context, apiKey, baseUrl, model string, maxOut int) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if maxOut <= 0 {
		maxOut = 2048
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseUrl,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: c, model: model, maxOut: maxOut}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Translate(ctx context.Context, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	source := tr.SourceLang
	if source == "" {
		source = domain.DetectLang(tr.Text)
	}
	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Reply with only the translation, no commentary.\n\n%s",
		domain.LangName(source), domain.LangName(tr.TargetLang), tr.Text,
	)
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: int32(p.maxOut),
	})
	if err != nil {
		if strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
			return adapter.TranslateResult{}, fmt.Errorf("gemini: %v: %w", err, domain.ErrProviderRateLimited)
		}
		return adapter.TranslateResult{}, fmt.Errorf("gemini: %v: %w", err, domain.ErrProviderUnavailable)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			text = strings.TrimSpace(t)
		}
	}
	if text == "" {
		return adapter.TranslateResult{}, fmt.Errorf("gemini empty candidate: %w", domain.ErrProviderUnavailable)
	}

	return adapter.TranslateResult{
		Text:       text,
		Provider:   p.Name(),
		SourceLang: source,
		Detected:   tr.SourceLang == "",
	}, nil
}
