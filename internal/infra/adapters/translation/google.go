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

var _ adapter.TranslationProvider = (*GoogleProvider)(nil)

// GoogleProvider uses the unofficial gtx endpoint, which needs no key
// but answers in a nested-array format that has to be walked by hand.
type GoogleProvider struct {
	base   string // e.g., https://translate.googleapis.com
	client *http.Client
}

func NewGoogleProvider(base string) *GoogleProvider {
	if base == "" {
		base = "https://translate.googleapis.com"
	}
	return &GoogleProvider{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Translate(ctx context.Context, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	source := tr.SourceLang
	if source == "" {
		source = "auto"
	}
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", tr.TargetLang)
	q.Set("dt", "t")
	q.Set("q", tr.Text)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, p.base+"/translate_a/single?"+q.Encode(), nil)

	resp, err := p.client.Do(req)
	if err != nil {
		return adapter.TranslateResult{}, fmt.Errorf("google: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return adapter.TranslateResult{}, fmt.Errorf("google http %d: %w", resp.StatusCode, domain.ErrProviderRateLimited)
	}
	if resp.StatusCode >= 300 {
		return adapter.TranslateResult{}, fmt.Errorf("google http %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	// Payload shape: [[["translated","original",...],...],null,"detected_lang",...]
	var payload []any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.TranslateResult{}, fmt.Errorf("google decode: %v: %w", err, domain.ErrProviderUnavailable)
	}
	text, detectedLang, ok := parseGtxPayload(payload)
	if !ok || text == "" {
		return adapter.TranslateResult{}, fmt.Errorf("google malformed payload: %w", domain.ErrProviderUnavailable)
	}

	out := adapter.TranslateResult{
		Text:       text,
		Provider:   p.Name(),
		SourceLang: tr.SourceLang,
	}
	if tr.SourceLang == "" {
		out.SourceLang = detectedLang
		out.Detected = true
	}
	return out, nil
}

func parseGtxPayload(payload []any) (text, detected string, ok bool) {
	if len(payload) == 0 {
		return "", "", false
	}
	segments, sok := payload[0].([]any)
	if !sok {
		return "", "", false
	}
	var b strings.Builder
	for _, s := range segments {
		seg, sok := s.([]any)
		if !sok || len(seg) == 0 {
			continue
		}
		if part, sok := seg[0].(string); sok {
			b.WriteString(part)
		}
	}
	if len(payload) > 2 {
		if lang, sok := payload[2].(string); sok {
			detected = lang
		}
	}
	return b.String(), detected, true
}
