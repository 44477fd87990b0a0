package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/ports/adapter"
)

var _ adapter.TranslationProvider = (*DeepLProvider)(nil)

// DeepLProvider talks to the DeepL v2 API. Keys ending in ":fx" belong
// to the free tier, which lives on a separate host.
type DeepLProvider struct {
	apiKey string
	base   string // e.g., https://api.deepl.com
	client *http.Client
}

func NewDeepLProvider(base, apiKey string) (*DeepLProvider, error) {
	if apiKey == "" {
		return nil, errors.New("deepl api key empty")
	}
	if base == "" {
		base = "https://api.deepl.com"
		if strings.HasSuffix(apiKey, ":fx") {
			base = "https://api-free.deepl.com"
		}
	}
	return &DeepLProvider{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *DeepLProvider) Name() string { return "deepl" }

func (p *DeepLProvider) Translate(ctx context.Context, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	reqBody := struct {
		Text       []string `json:"text"`
		TargetLang string   `json:"target_lang"`
		SourceLang string   `json:"source_lang,omitempty"`
	}{
		Text:       []string{tr.Text},
		TargetLang: strings.ToUpper(tr.TargetLang),
	}
	if tr.SourceLang != "" {
		reqBody.SourceLang = strings.ToUpper(tr.SourceLang)
	}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/v2/translate", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return adapter.TranslateResult{}, fmt.Errorf("deepl: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 456:
		// 456 is DeepL's "quota exceeded"
		return adapter.TranslateResult{}, fmt.Errorf("deepl http %d: %w", resp.StatusCode, domain.ErrProviderRateLimited)
	case resp.StatusCode >= 300:
		return adapter.TranslateResult{}, fmt.Errorf("deepl http %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	var payload struct {
		Translations []struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			Text                   string `json:"text"`
		} `json:"translations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.TranslateResult{}, fmt.Errorf("deepl decode: %v: %w", err, domain.ErrProviderUnavailable)
	}
	if len(payload.Translations) == 0 || payload.Translations[0].Text == "" {
		return adapter.TranslateResult{}, fmt.Errorf("deepl empty result: %w", domain.ErrProviderUnavailable)
	}

	out := adapter.TranslateResult{
		Text:       payload.Translations[0].Text,
		Provider:   p.Name(),
		SourceLang: tr.SourceLang,
	}
	if tr.SourceLang == "" {
		out.SourceLang = strings.ToLower(payload.Translations[0].DetectedSourceLanguage)
		out.Detected = true
	}
	return out, nil
}
