// File: internal/usecase/stats_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/domain/ports/repository"
	"telegram-translation-bot/internal/infra/logging"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase reads the daily usage counters for the /stats command
// and the admin dashboard.
type StatsUseCase interface {
	// ChatRange returns the chat's per-day rows for the trailing window,
	// oldest first. Days that saw no traffic have no row.
	ChatRange(ctx context.Context, chatID int64, days int) ([]*model.DailyStats, error)
	// Totals aggregates all chats over the trailing window.
	Totals(ctx context.Context, days int) (*model.DailyStats, error)
}

const defaultStatsDays = 7

type statsUC struct {
	stats repository.StatsRepository
	log   *zerolog.Logger
	now   func() time.Time
}

func NewStatsUseCase(stats repository.StatsRepository, logger *zerolog.Logger) *statsUC {
	l := logger.With().Str("component", "stats").Logger()
	return &statsUC{stats: stats, log: &l, now: time.Now}
}

func (s *statsUC) ChatRange(ctx context.Context, chatID int64, days int) ([]*model.DailyStats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.ChatRange")()

	from, to, err := s.window(days)
	if err != nil {
		return nil, err
	}
	return s.stats.FindRange(ctx, nil, chatID, from, to)
}

func (s *statsUC) Totals(ctx context.Context, days int) (*model.DailyStats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Totals")()

	from, to, err := s.window(days)
	if err != nil {
		return nil, err
	}
	return s.stats.Totals(ctx, nil, from, to)
}

// window resolves a trailing day count to an inclusive [from, to] pair
// of calendar days ending today.
func (s *statsUC) window(days int) (time.Time, time.Time, error) {
	if days == 0 {
		days = defaultStatsDays
	}
	if days < 0 || days > 366 {
		return time.Time{}, time.Time{}, fmt.Errorf("window of %d days: %w", days, domain.ErrInvalidArgument)
	}
	to := model.Date(s.now())
	from := to.AddDate(0, 0, -(days - 1))
	return from, to, nil
}
