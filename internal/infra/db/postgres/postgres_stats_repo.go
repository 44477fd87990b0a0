// File: internal/infra/db/postgres/postgres_stats_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/domain/ports/repository"
)

var _ repository.StatsRepository = (*StatsRepo)(nil)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) BumpDaily(ctx context.Context, qx any, day time.Time, chatID int64, posts, translations, failures int64) error {
	const q = `
INSERT INTO daily_stats (day, chat_id, posts, translations, failures)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (day, chat_id) DO UPDATE SET
  posts = daily_stats.posts + EXCLUDED.posts,
  translations = daily_stats.translations + EXCLUDED.translations,
  failures = daily_stats.failures + EXCLUDED.failures;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, day, chatID, posts, translations, failures); err != nil {
		return fmt.Errorf("bump daily stats: %w", err)
	}
	return nil
}

func (r *StatsRepo) FindRange(ctx context.Context, qx any, chatID int64, from, to time.Time) ([]*model.DailyStats, error) {
	const q = `
SELECT day, chat_id, posts, translations, failures
  FROM daily_stats
 WHERE chat_id = $1 AND day BETWEEN $2 AND $3
 ORDER BY day ASC;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, chatID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.DailyStats
	for rows.Next() {
		var d model.DailyStats
		if err := rows.Scan(&d.Day, &d.ChatID, &d.Posts, &d.Translations, &d.Failures); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *StatsRepo) Totals(ctx context.Context, qx any, from, to time.Time) (*model.DailyStats, error) {
	const q = `
SELECT COALESCE(SUM(posts),0), COALESCE(SUM(translations),0), COALESCE(SUM(failures),0)
  FROM daily_stats
 WHERE day BETWEEN $1 AND $2;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	var d model.DailyStats
	d.Day = model.Date(from)
	if err := ex.QueryRow(ctx, q, from, to).Scan(&d.Posts, &d.Translations, &d.Failures); err != nil {
		return nil, err
	}
	return &d, nil
}
