package notification

import (
	"time"

	"github.com/cfpulse/cfpulse/internal/domain/events"
)

// Event types relevant to notifications:
const (
	EventTypeContestReminder   events.EventType = "ContestReminder"
	EventTypeTaskAssigned      events.EventType = "TaskAssigned"
	EventTypeTaskBatchAssigned events.EventType = "TaskBatchAssigned"
	EventTypeTaskOfDayAssigned events.EventType = "TaskOfDayAssigned"
)

// AllEventTypes lists every event type the notification consumer subscribes to.
func AllEventTypes() []events.EventType {
	return []events.EventType{
		EventTypeContestReminder,
		EventTypeTaskAssigned,
		EventTypeTaskBatchAssigned,
		EventTypeTaskOfDayAssigned,
	}
}

// ContestReminderEvent signals that a Codeforces contest is starting soon.
// It is addressed to the system audience; every user sees the resulting
// notification.
type ContestReminderEvent struct {
	ContestID int64     `json:"contest_id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	Duration  int64     `json:"duration_seconds"`
	Timestamp time.Time `json:"occurred_at"`
}

// NewContestReminderEvent creates a new contest reminder event.
func NewContestReminderEvent(contestID int64, name string, startsAt time.Time, durationSeconds int64) ContestReminderEvent {
	return ContestReminderEvent{
		ContestID: contestID,
		Name:      name,
		StartsAt:  startsAt,
		Duration:  durationSeconds,
		Timestamp: time.Now(),
	}
}

func (e ContestReminderEvent) EventType() events.EventType { return EventTypeContestReminder }
func (e ContestReminderEvent) OccurredAt() time.Time       { return e.Timestamp }

// TaskAssignedEvent signals that a single practice task was assigned to a user.
type TaskAssignedEvent struct {
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"occurred_at"`
}

// NewTaskAssignedEvent creates a new task assigned event.
func NewTaskAssignedEvent(taskID, userID int64, title string) TaskAssignedEvent {
	return TaskAssignedEvent{
		TaskID:    taskID,
		UserID:    userID,
		Title:     title,
		Timestamp: time.Now(),
	}
}

func (e TaskAssignedEvent) EventType() events.EventType { return EventTypeTaskAssigned }
func (e TaskAssignedEvent) OccurredAt() time.Time       { return e.Timestamp }

// AssignedTask is a single task within a batch assignment.
type AssignedTask struct {
	TaskID int64  `json:"task_id"`
	UserID int64  `json:"user_id"`
	Title  string `json:"title"`
}

// TaskBatchAssignedEvent signals that a batch of practice tasks was assigned,
// possibly spanning multiple users.
type TaskBatchAssignedEvent struct {
	BatchID   string         `json:"batch_id"`
	Tasks     []AssignedTask `json:"tasks"`
	Timestamp time.Time      `json:"occurred_at"`
}

// NewTaskBatchAssignedEvent creates a new task batch assigned event.
func NewTaskBatchAssignedEvent(batchID string, tasks []AssignedTask) TaskBatchAssignedEvent {
	return TaskBatchAssignedEvent{
		BatchID:   batchID,
		Tasks:     tasks,
		Timestamp: time.Now(),
	}
}

func (e TaskBatchAssignedEvent) EventType() events.EventType { return EventTypeTaskBatchAssigned }
func (e TaskBatchAssignedEvent) OccurredAt() time.Time       { return e.Timestamp }

// TaskOfDayAssignedEvent signals that a user's daily task was selected.
type TaskOfDayAssignedEvent struct {
	UserID    int64     `json:"user_id"`
	TaskID    int64     `json:"task_id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Timestamp time.Time `json:"occurred_at"`
}

// NewTaskOfDayAssignedEvent creates a new task-of-day assigned event.
func NewTaskOfDayAssignedEvent(userID, taskID int64, title string, date time.Time) TaskOfDayAssignedEvent {
	return TaskOfDayAssignedEvent{
		UserID:    userID,
		TaskID:    taskID,
		Title:     title,
		Date:      date.Format("2006-01-02"),
		Timestamp: time.Now(),
	}
}

func (e TaskOfDayAssignedEvent) EventType() events.EventType { return EventTypeTaskOfDayAssigned }
func (e TaskOfDayAssignedEvent) OccurredAt() time.Time       { return e.Timestamp }
