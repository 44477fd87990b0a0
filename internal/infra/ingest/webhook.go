package ingest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/infra/metrics"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Webhook accepts pushed updates from Telegram. The handler does no
// translation work itself: it validates, normalizes and enqueues, so the
// ack goes back inside Telegram's delivery timeout even while dispatch
// is busy. Overload answers 503 with Retry-After instead of taking work
// the queue cannot hold.
type Webhook struct {
	intake     *Intake
	secret     string
	maxBody    int64
	retryAfter time.Duration
	log        *zerolog.Logger
	now        func() time.Time
}

func NewWebhook(intake *Intake, cfg config.WebhookConfig, logger *zerolog.Logger) *Webhook {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	retryAfter := cfg.RetryAfter
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	l := logger.With().Str("component", "webhook").Logger()
	return &Webhook{
		intake:     intake,
		secret:     cfg.SecretToken,
		maxBody:    maxBody,
		retryAfter: retryAfter,
		log:        &l,
		now:        time.Now,
	}
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	defer func() {
		metrics.ObserveWebhookAck(h.now().Sub(start).Milliseconds())
	}()

	if h.secret != "" && r.Header.Get(secretTokenHeader) != h.secret {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		// Telegram retries any non-2xx with the same payload, and the same
		// bytes cannot become valid JSON on a later attempt. Ack and drop.
		metrics.IncUpdateRejected(string(model.IngestWebhook), "malformed")
		h.log.Warn().Err(err).Msg("malformed webhook payload")
		w.WriteHeader(http.StatusOK)
		return
	}

	norm, ok := fromTelegramUpdate(upd, model.IngestWebhook, h.now())
	if !ok {
		metrics.IncUpdateRejected(string(model.IngestWebhook), "ignored")
		h.ack(w, upd)
		return
	}

	if _, err := h.intake.Accept(r.Context(), norm); err != nil {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(h.retryAfter)))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	h.ack(w, upd)
}

// ack closes out a delivered update. Button taps are answered in the
// webhook response body itself, which stops the client spinner without
// a second API call.
func (h *Webhook) ack(w http.ResponseWriter, upd tgbotapi.Update) {
	if upd.CallbackQuery == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"method":            "answerCallbackQuery",
		"callback_query_id": upd.CallbackQuery.ID,
	})
}

func retryAfterSeconds(d time.Duration) int {
	s := int(d / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
