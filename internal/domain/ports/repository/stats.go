package repository

import (
	"context"
	"time"

	"telegram-translation-bot/internal/domain/model"
)

// StatsRepository accumulates per-chat daily usage counters.
type StatsRepository interface {
	// BumpDaily adds the deltas to the (day, chatID) row, creating it on
	// first touch.
	BumpDaily(ctx context.Context, qx any, day time.Time, chatID int64, posts, translations, failures int64) error
	FindRange(ctx context.Context, qx any, chatID int64, from, to time.Time) ([]*model.DailyStats, error)
	// Totals sums counters across all chats for the given range.
	Totals(ctx context.Context, qx any, from, to time.Time) (*model.DailyStats, error)
}
