// Package notification models the user-facing notifications produced from
// domain events, together with the idempotency machinery that makes event
// consumption safe under redelivery.
package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SystemUserID is the audience for platform-wide notifications such as
// contest reminders. Rows addressed to it are visible to every user.
const SystemUserID int64 = 0

// RelatedType categorizes what entity a notification refers to.
type RelatedType string

const (
	RelatedTypeContest      RelatedType = "contest"
	RelatedTypeTask         RelatedType = "task"
	RelatedTypeBatchSummary RelatedType = "batch_summary"
	RelatedTypeTaskOfDay    RelatedType = "task_of_day"
)

// Notification is a single message destined for a user's notification feed.
type Notification struct {
	ID          uuid.UUID
	UserID      int64
	Content     string
	RelatedType RelatedType
	RelatedID   string
	CreatedAt   time.Time
	IsRead      bool
}

// NewNotification creates an unread notification for the given user.
func NewNotification(userID int64, content string, relatedType RelatedType, relatedID string) *Notification {
	return &Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Content:     content,
		RelatedType: relatedType,
		RelatedID:   relatedID,
		CreatedAt:   time.Now(),
	}
}

// FromContestReminder builds the system-wide notification for an upcoming contest.
func FromContestReminder(evt ContestReminderEvent) []*Notification {
	content := fmt.Sprintf("Contest %q starts at %s", evt.Name, evt.StartsAt.UTC().Format(time.RFC3339))
	return []*Notification{
		NewNotification(SystemUserID, content, RelatedTypeContest, fmt.Sprintf("%d", evt.ContestID)),
	}
}

// FromTaskAssigned builds the notification for a single task assignment.
func FromTaskAssigned(evt TaskAssignedEvent) []*Notification {
	content := fmt.Sprintf("New task assigned: %s", evt.Title)
	return []*Notification{
		NewNotification(evt.UserID, content, RelatedTypeTask, fmt.Sprintf("%d", evt.TaskID)),
	}
}

// FromTaskBatchAssigned expands a batch assignment into per-task notifications,
// adding a summary notification for any user who received more than one task
// in the batch.
func FromTaskBatchAssigned(evt TaskBatchAssignedEvent) []*Notification {
	notifications := make([]*Notification, 0, len(evt.Tasks))
	perUser := make(map[int64]int)

	for _, task := range evt.Tasks {
		perUser[task.UserID]++
		content := fmt.Sprintf("New task assigned: %s", task.Title)
		notifications = append(notifications,
			NewNotification(task.UserID, content, RelatedTypeTask, fmt.Sprintf("%d", task.TaskID)))
	}

	// Preserve first-seen user order so output is deterministic for a given event.
	seen := make(map[int64]struct{}, len(perUser))
	for _, task := range evt.Tasks {
		if _, ok := seen[task.UserID]; ok {
			continue
		}
		seen[task.UserID] = struct{}{}

		if count := perUser[task.UserID]; count > 1 {
			content := fmt.Sprintf("You received %d new tasks", count)
			notifications = append(notifications,
				NewNotification(task.UserID, content, RelatedTypeBatchSummary, evt.BatchID))
		}
	}

	return notifications
}

// FromTaskOfDayAssigned builds the notification for a user's daily task.
func FromTaskOfDayAssigned(evt TaskOfDayAssignedEvent) []*Notification {
	content := fmt.Sprintf("Your task of the day: %s", evt.Title)
	return []*Notification{
		NewNotification(evt.UserID, content, RelatedTypeTaskOfDay, fmt.Sprintf("%d", evt.TaskID)),
	}
}
