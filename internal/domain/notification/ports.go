package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/cfpulse/cfpulse/internal/domain/events"
)

// Store persists notifications together with the idempotency claims that
// guard them.
type Store interface {
	// SaveNotifications claims the event's idempotency key and persists the
	// notifications as one atomic unit. If the key was already claimed it
	// returns ErrDuplicateEvent and persists nothing. Any other error means
	// the claim was rolled back along with the writes, so a redelivery of the
	// same event will attempt the full unit again.
	SaveNotifications(ctx context.Context, eventID string, eventType events.EventType, notifications []*Notification) error

	// ListForUser returns a page of the user's notifications, newest first,
	// including system-wide notifications.
	ListForUser(ctx context.Context, userID int64, limit, offset int32) ([]*Notification, error)

	// MarkRead marks a single notification as read. Returns
	// ErrNotificationNotFound if it does not exist or belongs to another user.
	MarkRead(ctx context.Context, id uuid.UUID, userID int64) error

	// MarkAllRead marks all of the user's unread notifications as read and
	// returns how many rows changed.
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}
