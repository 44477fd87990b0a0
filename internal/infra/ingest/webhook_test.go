//go:build !integration

package ingest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"telegram-translation-bot/internal/config"
)

const validUpdateBody = `{"update_id":1,"message":{"message_id":2,"chat":{"id":42},"text":"hola"}}`

func newTestWebhook(queueSize int, cfg config.WebhookConfig) (*Webhook, *Queue) {
	q := NewQueue(queueSize)
	in := NewIntake(q, nil, nil, newTestLogger())
	return NewWebhook(in, cfg, newTestLogger()), q
}

func postUpdate(t *testing.T, h *Webhook, body string, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWebhook_SecretToken(t *testing.T) {
	h, q := newTestWebhook(4, config.WebhookConfig{SecretToken: "s3cret"})

	t.Run("missing secret -> 401", func(t *testing.T) {
		if rr := postUpdate(t, h, validUpdateBody, ""); rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("wrong secret -> 401", func(t *testing.T) {
		if rr := postUpdate(t, h, validUpdateBody, "nope"); rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("correct secret -> 200 and queued", func(t *testing.T) {
		if rr := postUpdate(t, h, validUpdateBody, "s3cret"); rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if q.Depth() != 1 {
			t.Fatalf("expected update queued, depth=%d", q.Depth())
		}
	})
}

func TestWebhook_Overload(t *testing.T) {
	h, _ := newTestWebhook(1, config.WebhookConfig{RetryAfter: 2 * time.Second})

	if rr := postUpdate(t, h, validUpdateBody, ""); rr.Code != http.StatusOK {
		t.Fatalf("first update should be accepted, got %d", rr.Code)
	}

	second := `{"update_id":2,"message":{"message_id":3,"chat":{"id":42},"text":"otra"}}`
	rr := postUpdate(t, h, second, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on full queue, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After: 2, got %q", got)
	}
}

func TestWebhook_MalformedBodyIsAcked(t *testing.T) {
	h, q := newTestWebhook(4, config.WebhookConfig{})

	rr := postUpdate(t, h, `{"update_id": not-json`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("malformed payload must be acked so Telegram stops retrying, got %d", rr.Code)
	}
	if q.Depth() != 0 {
		t.Fatalf("malformed payload must not be queued, depth=%d", q.Depth())
	}
}

func TestWebhook_IgnoredUpdateIsAcked(t *testing.T) {
	h, q := newTestWebhook(4, config.WebhookConfig{})

	rr := postUpdate(t, h, `{"update_id":7}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for untranslatable update, got %d", rr.Code)
	}
	if q.Depth() != 0 {
		t.Fatalf("untranslatable update must not be queued, depth=%d", q.Depth())
	}
}

func TestWebhook_OversizedBody(t *testing.T) {
	h, _ := newTestWebhook(4, config.WebhookConfig{MaxBodyBytes: 64})

	rr := postUpdate(t, h, strings.Repeat("x", 1024), "")
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestWebhook_ButtonTapAnsweredInResponse(t *testing.T) {
	h, _ := newTestWebhook(4, config.WebhookConfig{})

	body := `{"update_id":9,"callback_query":{"id":"cbq-9","from":{"id":5},` +
		`"message":{"message_id":2,"chat":{"id":42}},"data":"cmd:status"}}`
	rr := postUpdate(t, h, body, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON ack body, got Content-Type %q", ct)
	}
	ack := rr.Body.String()
	if !strings.Contains(ack, "answerCallbackQuery") || !strings.Contains(ack, "cbq-9") {
		t.Fatalf("expected answerCallbackQuery ack for cbq-9, got %s", ack)
	}
}
