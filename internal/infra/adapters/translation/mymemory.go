package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/ports/adapter"
)

var _ adapter.TranslationProvider = (*MyMemoryProvider)(nil)

// MyMemoryProvider uses the free MyMemory API. The API has no automatic
// detection, so an empty source language falls back to the script
// heuristic. Supplying a contact email raises the daily quota.
type MyMemoryProvider struct {
	email  string
	base   string // e.g., https://api.mymemory.translated.net
	client *http.Client
}

func NewMyMemoryProvider(base, email string) *MyMemoryProvider {
	if base == "" {
		base = "https://api.mymemory.translated.net"
	}
	return &MyMemoryProvider{
		email:  email,
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *MyMemoryProvider) Name() string { return "mymemory" }

func (p *MyMemoryProvider) Translate(ctx context.Context, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	source := tr.SourceLang
	detected := false
	if source == "" {
		source = domain.DetectLang(tr.Text)
		detected = true
	}

	q := url.Values{}
	q.Set("q", tr.Text)
	q.Set("langpair", source+"|"+tr.TargetLang)
	if p.email != "" {
		q.Set("de", p.email)
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, p.base+"/get?"+q.Encode(), nil)

	resp, err := p.client.Do(req)
	if err != nil {
		return adapter.TranslateResult{}, fmt.Errorf("mymemory: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return adapter.TranslateResult{}, fmt.Errorf("mymemory http %d: %w", resp.StatusCode, domain.ErrProviderRateLimited)
	}
	if resp.StatusCode >= 300 {
		return adapter.TranslateResult{}, fmt.Errorf("mymemory http %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	var payload struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		ResponseStatus any `json:"responseStatus"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.TranslateResult{}, fmt.Errorf("mymemory decode: %v: %w", err, domain.ErrProviderUnavailable)
	}
	// The API reports quota exhaustion inside a 200 body.
	if status := fmt.Sprint(payload.ResponseStatus); status != "200" {
		if status == "429" {
			return adapter.TranslateResult{}, fmt.Errorf("mymemory status %s: %w", status, domain.ErrProviderRateLimited)
		}
		return adapter.TranslateResult{}, fmt.Errorf("mymemory status %s: %w", status, domain.ErrProviderUnavailable)
	}
	text := payload.ResponseData.TranslatedText
	if text == "" || strings.Contains(text, "MYMEMORY WARNING") {
		return adapter.TranslateResult{}, fmt.Errorf("mymemory quota exhausted: %w", domain.ErrProviderRateLimited)
	}

	return adapter.TranslateResult{
		Text:       text,
		Provider:   p.Name(),
		SourceLang: source,
		Detected:   detected,
	}, nil
}
