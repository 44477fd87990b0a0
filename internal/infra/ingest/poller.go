package ingest

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/infra/metrics"
)

const maxPollErrPause = 30 * time.Second

// updateSource is the slice of the Telegram client the poller needs.
type updateSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Poller pulls updates over long polling. The Telegram offset doubles as
// the ack cursor: it moves past an update only once that update sits in
// the queue (or was dropped as a duplicate / ignored), so a full queue
// makes the next poll re-read the same updates instead of losing them.
type Poller struct {
	src     updateSource
	intake  *Intake
	timeout int
	backoff time.Duration
	log     *zerolog.Logger
	now     func() time.Time
}

func NewPoller(src updateSource, intake *Intake, pollTimeout int, backoff time.Duration, logger *zerolog.Logger) *Poller {
	if pollTimeout <= 0 {
		pollTimeout = 50
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	l := logger.With().Str("component", "poller").Logger()
	return &Poller{
		src:     src,
		intake:  intake,
		timeout: pollTimeout,
		backoff: backoff,
		log:     &l,
		now:     time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	offset := 0
	errPause := p.backoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = p.timeout

		updates, err := p.src.GetUpdates(cfg)
		if err != nil {
			p.log.Warn().Err(err).Dur("pause", errPause).Msg("get updates failed")
			if !p.sleep(ctx, errPause) {
				return ctx.Err()
			}
			errPause *= 2
			if errPause > maxPollErrPause {
				errPause = maxPollErrPause
			}
			continue
		}
		errPause = p.backoff

		for _, u := range updates {
			norm, ok := fromTelegramUpdate(u, model.IngestPolling, p.now())
			if !ok {
				metrics.IncUpdateRejected(string(model.IngestPolling), "ignored")
				offset = u.UpdateID + 1
				continue
			}
			if _, err := p.intake.Accept(ctx, norm); err != nil {
				// Queue full. Leave the offset where it is so this update
				// comes back on the next poll, and give dispatch room.
				p.log.Warn().
					Int("update_id", u.UpdateID).
					Int64("chat_id", norm.ChatID).
					Dur("pause", p.backoff).
					Msg("queue full, poll paused")
				if !p.sleep(ctx, p.backoff) {
					return ctx.Err()
				}
				break
			}
			offset = u.UpdateID + 1
		}
	}
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
