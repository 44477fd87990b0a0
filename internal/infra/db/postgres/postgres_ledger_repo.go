// File: internal/infra/db/postgres/postgres_ledger_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-translation-bot/internal/domain/ports/repository"
)

var _ repository.ProcessedLedger = (*LedgerRepo)(nil)

// LedgerRepo is the durable processed-message record. The primary key on
// (chat_id, message_id) makes RecordProcessed a race-free claim: exactly
// one caller wins the insert.
type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) RecordProcessed(ctx context.Context, qx any, chatID int64, messageID int, now time.Time) (bool, error) {
	const q = `
INSERT INTO processed_messages (chat_id, message_id, processed_at)
VALUES ($1,$2,$3)
ON CONFLICT (chat_id, message_id) DO NOTHING;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return false, err
	}
	tag, err := ex.Exec(ctx, q, chatID, messageID, now)
	if err != nil {
		return false, fmt.Errorf("record processed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LedgerRepo) PruneBefore(ctx context.Context, qx any, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM processed_messages WHERE processed_at < $1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
