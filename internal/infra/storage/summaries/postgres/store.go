// Package postgres provides the PostgreSQL-backed store for weekly user summaries.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfpulse/cfpulse/internal/domain/summary"
	"github.com/cfpulse/cfpulse/internal/infra/storage"
)

var _ summary.Store = (*summaryStore)(nil)

// summaryStore implements summary.Store using PostgreSQL as the backing store.
type summaryStore struct {
	db     *pgxpool.Pool
	tracer trace.Tracer
}

// NewStore creates a new PostgreSQL-backed summary store with tracing capabilities.
func NewStore(pool *pgxpool.Pool, tracer trace.Tracer) *summaryStore {
	return &summaryStore{db: pool, tracer: tracer}
}

var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
}

// Upsert writes the summary for (user, week), replacing any earlier run's result.
// Re-running a week is expected; the weekly job is triggered with retries.
func (s *summaryStore) Upsert(ctx context.Context, us *summary.UserSummary) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.Int64("user_id", us.UserID),
		attribute.String("week_start", us.WeekStart.Format("2006-01-02")),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.upsert_summary", dbAttrs, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, `
			INSERT INTO user_summaries (user_id, week_start, handle, solved_count, attempted, summary, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, week_start) DO UPDATE SET
				handle       = EXCLUDED.handle,
				solved_count = EXCLUDED.solved_count,
				attempted    = EXCLUDED.attempted,
				summary      = EXCLUDED.summary,
				generated_at = EXCLUDED.generated_at`,
			us.UserID, us.WeekStart, us.Handle, us.SolvedCount, us.Attempted, us.Summary, us.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert summary error: %w", err)
		}
		return nil
	})
}

// Get returns the summary for the user and week, or summary.ErrSummaryNotFound.
func (s *summaryStore) Get(ctx context.Context, userID int64, weekStart time.Time) (*summary.UserSummary, error) {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.Int64("user_id", userID),
		attribute.String("week_start", weekStart.Format("2006-01-02")),
	)

	var us summary.UserSummary
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.get_summary", dbAttrs, func(ctx context.Context) error {
		row := s.db.QueryRow(ctx, `
			SELECT user_id, week_start, handle, solved_count, attempted, summary, generated_at
			FROM user_summaries
			WHERE user_id = $1 AND week_start = $2`,
			userID, weekStart,
		)
		if err := row.Scan(&us.UserID, &us.WeekStart, &us.Handle, &us.SolvedCount, &us.Attempted, &us.Summary, &us.GeneratedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return summary.ErrSummaryNotFound
			}
			return fmt.Errorf("get summary error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &us, nil
}
