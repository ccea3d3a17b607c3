// Package postgres provides the PostgreSQL-backed notification store. The
// store couples every notification write to an idempotency-key claim inside a
// single transaction, which is what turns the bus's at-least-once delivery
// into an exactly-once effect on the database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/domain/notification"
	"github.com/cfpulse/cfpulse/internal/infra/storage"
)

var _ notification.Store = (*notificationStore)(nil)

// notificationStore implements notification.Store using PostgreSQL as the
// backing store.
type notificationStore struct {
	db     *pgxpool.Pool
	tracer trace.Tracer
}

// NewStore creates a new PostgreSQL-backed notification store with tracing capabilities.
func NewStore(pool *pgxpool.Pool, tracer trace.Tracer) *notificationStore {
	return &notificationStore{db: pool, tracer: tracer}
}

// defaultDBAttributes defines standard OpenTelemetry attributes for database operations.
var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
}

// SaveNotifications claims the event's idempotency key and inserts the
// notification rows in one transaction. The claim and the writes commit or
// roll back together: a duplicate claim aborts with ErrDuplicateEvent and a
// failed write rolls the claim back, so a redelivery retries the whole unit.
func (s *notificationStore) SaveNotifications(
	ctx context.Context,
	eventID string,
	eventType events.EventType,
	notifications []*notification.Notification,
) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("event_id", eventID),
		attribute.String("event_type", string(eventType)),
		attribute.Int("notification_count", len(notifications)),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.save_notifications", dbAttrs, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction error: %w", err)
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx, `
			INSERT INTO idempotency_keys (event_id, event_type, processed_at)
			VALUES ($1, $2, now())
			ON CONFLICT (event_id) DO NOTHING`,
			eventID, string(eventType),
		)
		if err != nil {
			return fmt.Errorf("claim idempotency key error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return notification.ErrDuplicateEvent
		}

		for _, n := range notifications {
			if _, err := tx.Exec(ctx, `
				INSERT INTO notifications (id, user_id, content, related_type, related_id, created_at, is_read)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				n.ID, n.UserID, n.Content, string(n.RelatedType), n.RelatedID, n.CreatedAt, n.IsRead,
			); err != nil {
				return fmt.Errorf("insert notification error: %w", err)
			}
		}

		return tx.Commit(ctx)
	})
}

// ListForUser returns a page of the user's notifications, newest first. Rows
// addressed to the system audience are included for every user.
func (s *notificationStore) ListForUser(
	ctx context.Context,
	userID int64,
	limit, offset int32,
) ([]*notification.Notification, error) {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.Int64("user_id", userID),
		attribute.Int("limit", int(limit)),
	)

	var result []*notification.Notification
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_notifications", dbAttrs, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, `
			SELECT id, user_id, content, related_type, related_id, created_at, is_read
			FROM notifications
			WHERE user_id = $1 OR user_id = $2
			ORDER BY created_at DESC
			LIMIT $3 OFFSET $4`,
			userID, notification.SystemUserID, limit, offset,
		)
		if err != nil {
			return fmt.Errorf("list notifications query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				n           notification.Notification
				relatedType string
			)
			if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &relatedType, &n.RelatedID, &n.CreatedAt, &n.IsRead); err != nil {
				return fmt.Errorf("scan notification error: %w", err)
			}
			n.RelatedType = notification.RelatedType(relatedType)
			result = append(result, &n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkRead marks a single notification as read for the owning user.
func (s *notificationStore) MarkRead(ctx context.Context, id uuid.UUID, userID int64) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("notification_id", id.String()),
		attribute.Int64("user_id", userID),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.mark_notification_read", dbAttrs, func(ctx context.Context) error {
		tag, err := s.db.Exec(ctx, `
			UPDATE notifications SET is_read = TRUE
			WHERE id = $1 AND user_id = $2`,
			id, userID,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notification.ErrNotificationNotFound
			}
			return fmt.Errorf("mark read error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return notification.ErrNotificationNotFound
		}
		return nil
	})
}

// MarkAllRead marks all of the user's unread notifications as read.
func (s *notificationStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("user_id", userID))

	var updated int64
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.mark_all_notifications_read", dbAttrs, func(ctx context.Context) error {
		tag, err := s.db.Exec(ctx, `
			UPDATE notifications SET is_read = TRUE
			WHERE user_id = $1 AND is_read = FALSE`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("mark all read error: %w", err)
		}
		updated = tag.RowsAffected()
		return nil
	})
	return updated, err
}
