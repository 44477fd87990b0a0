// File: internal/infra/sched/janitor.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/domain/ports/repository"
	"telegram-translation-bot/internal/infra/metrics"
	"telegram-translation-bot/internal/infra/redis"
)

const janitorLockKey = "lock:janitor"

// Janitor periodically prunes the processed-message ledger and archives
// chat sessions that have gone quiet. A redis lock keeps overlapping
// deployments from sweeping at the same time.
type Janitor struct {
	interval        time.Duration
	ledgerRetention time.Duration
	sessionIdle     time.Duration
	ledger          repository.ProcessedLedger
	sessions        repository.ChatSessionRepository
	locker          redis.Locker
	log             *zerolog.Logger
	now             func() time.Time
}

func NewJanitor(
	cfg config.JanitorConfig,
	ledger repository.ProcessedLedger,
	sessions repository.ChatSessionRepository,
	locker redis.Locker,
	logger *zerolog.Logger,
) *Janitor {
	l := logger.With().Str("component", "janitor").Logger()
	j := &Janitor{
		interval:        cfg.Interval,
		ledgerRetention: cfg.LedgerRetention,
		sessionIdle:     cfg.SessionIdle,
		ledger:          ledger,
		sessions:        sessions,
		locker:          locker,
		log:             &l,
		now:             time.Now,
	}
	if j.interval <= 0 {
		j.interval = time.Hour
	}
	if j.ledgerRetention <= 0 {
		j.ledgerRetention = 14 * 24 * time.Hour
	}
	if j.sessionIdle <= 0 {
		j.sessionIdle = 30 * 24 * time.Hour
	}
	return j
}

func (j *Janitor) Run(ctx context.Context) error {
	j.log.Info().
		Dur("interval", j.interval).
		Dur("ledger_retention", j.ledgerRetention).
		Dur("session_idle", j.sessionIdle).
		Msg("Starting janitor")
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("Stopping janitor")
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	if j.locker != nil {
		token, err := j.locker.TryLock(ctx, janitorLockKey, j.interval)
		if err != nil {
			j.log.Debug().Msg("sweep already running elsewhere")
			return
		}
		defer func() {
			if err := j.locker.Unlock(ctx, janitorLockKey, token); err != nil {
				j.log.Warn().Err(err).Msg("janitor unlock failed")
			}
		}()
	}

	now := j.now()
	if n, err := j.ledger.PruneBefore(ctx, nil, now.Add(-j.ledgerRetention)); err != nil {
		j.log.Error().Err(err).Msg("ledger prune failed")
	} else if n > 0 {
		metrics.AddLedgerPruned(n)
		j.log.Info().Int64("rows", n).Msg("ledger pruned")
	}

	if n, err := j.sessions.ArchiveIdle(ctx, nil, now.Add(-j.sessionIdle)); err != nil {
		j.log.Error().Err(err).Msg("session archive failed")
	} else if n > 0 {
		metrics.AddSessionsArchived(n)
		j.log.Info().Int64("rows", n).Msg("idle sessions archived")
	}
}
