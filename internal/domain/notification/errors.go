package notification

import "errors"

var (
	// ErrDuplicateEvent indicates an event's idempotency key was already
	// claimed; the event was fully processed by an earlier delivery.
	ErrDuplicateEvent = errors.New("event already processed")

	// ErrNotificationNotFound indicates the requested notification does not
	// exist or does not belong to the requesting user.
	ErrNotificationNotFound = errors.New("notification not found")
)
