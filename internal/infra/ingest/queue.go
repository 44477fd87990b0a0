// File: internal/infra/ingest/queue.go
package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/infra/metrics"
	"telegram-translation-bot/internal/infra/redis"
)

// Queue is the single bounded buffer between the ingestion frontends and
// the dispatcher. Offer never blocks: when the buffer is full the caller
// gets domain.ErrIngestionOverload and decides how to push back (pause
// polling, or answer 503 to the webhook).
type Queue struct {
	ch chan model.InboundUpdate
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{ch: make(chan model.InboundUpdate, size)}
}

func (q *Queue) Offer(upd model.InboundUpdate) error {
	select {
	case q.ch <- upd:
		metrics.SetQueueDepth(len(q.ch))
		return nil
	default:
		return domain.ErrIngestionOverload
	}
}

// Updates is the dispatcher's consume side.
func (q *Queue) Updates() <-chan model.InboundUpdate { return q.ch }

func (q *Queue) Depth() int { return len(q.ch) }

// CommandHandler receives bot commands, which bypass the translation
// queue and apply immediately.
type CommandHandler interface {
	HandleCommand(ctx context.Context, upd model.InboundUpdate)
}

// Intake is the shared admission path in front of the queue: both
// frontends run the same dedup check, command routing and overload
// handling, so an update behaves identically no matter how it arrived.
type Intake struct {
	queue    *Queue
	dedup    *redis.DedupWindow
	commands CommandHandler
	log      *zerolog.Logger
}

func NewIntake(queue *Queue, dedup *redis.DedupWindow, commands CommandHandler, logger *zerolog.Logger) *Intake {
	l := logger.With().Str("component", "intake").Logger()
	return &Intake{queue: queue, dedup: dedup, commands: commands, log: &l}
}

// Accept admits one update. It returns (false, nil) for a suppressed
// re-delivery, (false, ErrIngestionOverload) when the queue is full, and
// (true, nil) once the update is safely buffered or handled.
func (in *Intake) Accept(ctx context.Context, upd model.InboundUpdate) (bool, error) {
	// Commands change preferences, so they apply now instead of waiting
	// behind queued translation work. They skip the dedup window: every
	// command is an idempotent set, and button taps reuse the menu
	// message's ID, which the window would mistake for a re-delivery.
	if upd.IsCommand {
		if in.commands != nil {
			in.commands.HandleCommand(ctx, upd)
		}
		metrics.IncUpdateReceived(string(upd.Mode))
		return true, nil
	}

	if in.dedup != nil {
		seen, err := in.dedup.Seen(ctx, upd.ChatID, upd.MessageID)
		if err != nil {
			// Fail open: the durable ledger still suppresses duplicates
			// downstream, losing only the cheap early drop.
			in.log.Warn().Err(err).Int64("chat_id", upd.ChatID).Msg("dedup window unavailable")
		} else if seen {
			metrics.IncUpdateDeduped(string(upd.Mode))
			return false, nil
		}
	}

	if err := in.queue.Offer(upd); err != nil {
		// Un-mark so the sender's retry is not swallowed by the window.
		if in.dedup != nil {
			_ = in.dedup.Forget(ctx, upd.ChatID, upd.MessageID)
		}
		metrics.IncUpdateRejected(string(upd.Mode), "overload")
		return false, err
	}

	metrics.IncUpdateReceived(string(upd.Mode))
	return true, nil
}
