// Package memory provides an in-memory notification store for tests and
// development. It mirrors the transactional semantics of the PostgreSQL
// store: the idempotency claim and the notification writes succeed or fail
// as one unit.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/domain/notification"
)

var _ notification.Store = (*Store)(nil)

// Store is an in-memory notification.Store. A configurable failure hook lets
// tests simulate persistence errors and verify that claims roll back.
type Store struct {
	mu            sync.Mutex
	claims        map[string]events.EventType
	notifications []*notification.Notification

	// failNext causes the next SaveNotifications call to fail after the
	// claim, as a mid-transaction write error would.
	failNext error
}

// NewStore creates an empty in-memory notification store.
func NewStore() *Store {
	return &Store{claims: make(map[string]events.EventType)}
}

// FailNext makes the next SaveNotifications call return err with no state
// change, simulating a persistence failure that rolls back the transaction.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// SaveNotifications claims the event ID and stores the rows atomically.
func (s *Store) SaveNotifications(
	ctx context.Context,
	eventID string,
	eventType events.EventType,
	notifications []*notification.Notification,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}

	if _, claimed := s.claims[eventID]; claimed {
		return notification.ErrDuplicateEvent
	}

	s.claims[eventID] = eventType
	for _, n := range notifications {
		copied := *n
		s.notifications = append(s.notifications, &copied)
	}
	return nil
}

// ListForUser returns the user's notifications plus system-wide ones, newest first.
func (s *Store) ListForUser(ctx context.Context, userID int64, limit, offset int32) ([]*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*notification.Notification
	for _, n := range s.notifications {
		if n.UserID == userID || n.UserID == notification.SystemUserID {
			copied := *n
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := int(offset)
	if start > len(matched) {
		return nil, nil
	}
	end := start + int(limit)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// MarkRead marks one notification read for the owning user.
func (s *Store) MarkRead(ctx context.Context, id uuid.UUID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return notification.ErrNotificationNotFound
}

// MarkAllRead marks all the user's unread notifications as read.
func (s *Store) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

// ClaimCount reports how many distinct events have been claimed. Test helper.
func (s *Store) ClaimCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

// NotificationCount reports how many rows are stored. Test helper.
func (s *Store) NotificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}
