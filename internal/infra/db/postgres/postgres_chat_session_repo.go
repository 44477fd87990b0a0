// File: internal/infra/db/postgres/postgres_chat_session_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/domain/ports/repository"
	"telegram-translation-bot/internal/infra/metrics"
	"telegram-translation-bot/internal/infra/redis"
)

// ChatSessionRepo persists per-chat preferences with optimistic locking
// on the version column. Reads go through the Redis cache when one is
// attached and no transaction is in play.
var _ repository.ChatSessionRepository = (*ChatSessionRepo)(nil)

type ChatSessionRepo struct {
	pool  *pgxpool.Pool
	cache *redis.SessionCache
}

func NewChatSessionRepo(pool *pgxpool.Pool, cache *redis.SessionCache) *ChatSessionRepo {
	return &ChatSessionRepo{pool: pool, cache: cache}
}

// Save inserts a version-0 session or updates an existing one, guarded
// by the version the caller read. A lost race surfaces as
// domain.ErrStoreContention; on success the session carries the new
// stored version.
func (r *ChatSessionRepo) Save(ctx context.Context, qx any, session *model.ChatSession) error {
	const q = `
INSERT INTO chat_sessions (chat_id, source_lang, target_langs, provider, auto_translate, version, last_activity_at, archived_at)
VALUES ($1,$2,$3,$4,$5,1,$6,$7)
ON CONFLICT (chat_id) DO UPDATE SET
  source_lang = EXCLUDED.source_lang,
  target_langs = EXCLUDED.target_langs,
  provider = EXCLUDED.provider,
  auto_translate = EXCLUDED.auto_translate,
  version = chat_sessions.version + 1,
  last_activity_at = EXCLUDED.last_activity_at,
  archived_at = EXCLUDED.archived_at
WHERE chat_sessions.version = $8
RETURNING version;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	var newVersion int64
	err = ex.QueryRow(ctx, q,
		session.ChatID, session.SourceLang, session.TargetLangs, session.Provider,
		session.AutoTranslate, session.LastActivityAt, session.ArchivedAt,
		session.Version,
	).Scan(&newVersion)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Row exists but the stored version moved on.
			if r.cache != nil {
				_ = r.cache.DeleteSession(ctx, session.ChatID)
			}
			return domain.ErrStoreContention
		}
		return fmt.Errorf("save session: %w", err)
	}
	session.Version = newVersion

	if r.cache != nil && qx == nil {
		_ = r.cache.StoreSession(ctx, session)
	}
	return nil
}

func (r *ChatSessionRepo) FindByChatID(ctx context.Context, qx any, chatID int64) (*model.ChatSession, error) {
	// Cache only outside transactions so tx reads stay consistent.
	if r.cache != nil && qx == nil {
		if s, err := r.cache.GetSession(ctx, chatID); err == nil {
			metrics.IncCacheRequest("session", "hit")
			// Sliding expiry keeps active chats cached.
			_ = r.cache.ExtendSession(ctx, chatID)
			return s, nil
		}
		metrics.IncCacheRequest("session", "miss")
	}

	const q = `
SELECT chat_id, source_lang, target_langs, provider, auto_translate, version, last_activity_at, archived_at
  FROM chat_sessions WHERE chat_id = $1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	var s model.ChatSession
	err = ex.QueryRow(ctx, q, chatID).Scan(
		&s.ChatID, &s.SourceLang, &s.TargetLangs, &s.Provider,
		&s.AutoTranslate, &s.Version, &s.LastActivityAt, &s.ArchivedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if r.cache != nil && qx == nil {
		_ = r.cache.StoreSession(ctx, &s)
	}
	return &s, nil
}

// Touch bumps activity without the version guard. The cached copy is
// dropped rather than rewritten so the next read picks up the fresh row.
func (r *ChatSessionRepo) Touch(ctx context.Context, qx any, chatID int64, at time.Time) error {
	const q = `
UPDATE chat_sessions SET last_activity_at = $2, archived_at = NULL
 WHERE chat_id = $1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, chatID, at); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if r.cache != nil {
		_ = r.cache.DeleteSession(ctx, chatID)
	}
	return nil
}

func (r *ChatSessionRepo) ArchiveIdle(ctx context.Context, qx any, cutoff time.Time) (int64, error) {
	const q = `
UPDATE chat_sessions SET archived_at = NOW()
 WHERE archived_at IS NULL AND last_activity_at < $1;`
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
