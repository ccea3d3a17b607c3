package notification

import (
	"fmt"
	"time"
)

// Producers derive event IDs deterministically from the business identifiers
// of what happened, so a retried publish and a redelivered message carry the
// same ID. Consumers claim that ID before persisting; the claim is what makes
// processing exactly-once in effect.

// ContestEventID derives the idempotency key for a contest reminder.
// A contest is only ever announced once, regardless of how many poll cycles
// observe it.
func ContestEventID(contestID int64) string {
	return fmt.Sprintf("contest:%d", contestID)
}

// TaskEventID derives the idempotency key for a single task assignment.
func TaskEventID(taskID, userID int64) string {
	return fmt.Sprintf("task:%d:user:%d", taskID, userID)
}

// BatchEventID derives the idempotency key for a batch assignment.
func BatchEventID(batchID string) string {
	return fmt.Sprintf("batch:%s", batchID)
}

// TaskOfDayEventID derives the idempotency key for a daily task selection.
// The date component makes tomorrow's selection a distinct event.
func TaskOfDayEventID(userID int64, date time.Time) string {
	return fmt.Sprintf("tod:%d:%s", userID, date.Format("2006-01-02"))
}

// EventID derives the idempotency key for any notification event payload.
func EventID(payload any) (string, error) {
	switch evt := payload.(type) {
	case ContestReminderEvent:
		return ContestEventID(evt.ContestID), nil
	case TaskAssignedEvent:
		return TaskEventID(evt.TaskID, evt.UserID), nil
	case TaskBatchAssignedEvent:
		return BatchEventID(evt.BatchID), nil
	case TaskOfDayAssignedEvent:
		date, err := time.Parse("2006-01-02", evt.Date)
		if err != nil {
			return "", fmt.Errorf("invalid task-of-day date %q: %w", evt.Date, err)
		}
		return TaskOfDayEventID(evt.UserID, date), nil
	default:
		return "", fmt.Errorf("no event ID derivation for payload type %T", payload)
	}
}
