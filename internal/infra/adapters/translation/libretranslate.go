package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/ports/adapter"
)

// Compile-time assurance this provider satisfies the port
var _ adapter.TranslationProvider = (*LibreTranslateProvider)(nil)

// LibreTranslateProvider talks to a LibreTranslate instance. The public
// instance needs an api key; self-hosted ones usually run without.
type LibreTranslateProvider struct {
	apiKey string
	base   string // e.g., https://libretranslate.com
	client *http.Client
}

func NewLibreTranslateProvider(base, apiKey string) *LibreTranslateProvider {
	if base == "" {
		base = "https://libretranslate.com"
	}
	return &LibreTranslateProvider{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *LibreTranslateProvider) Name() string { return "libretranslate" }

func (p *LibreTranslateProvider) Translate(ctx context.Context, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	source := tr.SourceLang
	if source == "" {
		source = "auto"
	}
	reqBody := struct {
		Q      string `json:"q"`
		Source string `json:"source"`
		Target string `json:"target"`
		Format string `json:"format"`
		APIKey string `json:"api_key,omitempty"`
	}{Q: tr.Text, Source: source, Target: tr.TargetLang, Format: "text", APIKey: p.apiKey}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/translate", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return adapter.TranslateResult{}, fmt.Errorf("libretranslate: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return adapter.TranslateResult{}, fmt.Errorf("libretranslate http %d: %w", resp.StatusCode, domain.ErrProviderRateLimited)
	}
	if resp.StatusCode >= 300 {
		return adapter.TranslateResult{}, fmt.Errorf("libretranslate http %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	var payload struct {
		TranslatedText   string `json:"translatedText"`
		DetectedLanguage struct {
			Language string `json:"language"`
		} `json:"detectedLanguage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.TranslateResult{}, fmt.Errorf("libretranslate decode: %v: %w", err, domain.ErrProviderUnavailable)
	}
	if payload.TranslatedText == "" {
		return adapter.TranslateResult{}, fmt.Errorf("libretranslate empty result: %w", domain.ErrProviderUnavailable)
	}

	out := adapter.TranslateResult{
		Text:       payload.TranslatedText,
		Provider:   p.Name(),
		SourceLang: tr.SourceLang,
	}
	if tr.SourceLang == "" {
		out.SourceLang = payload.DetectedLanguage.Language
		out.Detected = true
	}
	return out, nil
}
