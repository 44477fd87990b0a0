package repository

import (
	"context"
	"time"

	"telegram-translation-bot/internal/domain/model"
)

// ChatSessionRepository persists per-chat translation preferences.
//
// Save is an insert-or-update guarded by the session Version: the write
// succeeds only when the stored version equals session.Version, and the
// stored version is incremented. A lost race returns
// domain.ErrStoreContention so the caller can re-read and retry.
type ChatSessionRepository interface {
	Save(ctx context.Context, qx any, session *model.ChatSession) error
	FindByChatID(ctx context.Context, qx any, chatID int64) (*model.ChatSession, error)
	// Touch bumps last activity and un-archives without a version check;
	// an activity bump can never lose someone else's preference write.
	Touch(ctx context.Context, qx any, chatID int64, at time.Time) error
	// ArchiveIdle marks sessions with no activity since cutoff and returns
	// how many rows were touched.
	ArchiveIdle(ctx context.Context, qx any, cutoff time.Time) (int64, error)
}
