package summary

import (
	"context"
	"time"
)

// Store persists weekly summaries.
type Store interface {
	// Upsert writes the summary for (user, week), replacing any earlier run's result.
	Upsert(ctx context.Context, s *UserSummary) error

	// Get returns the summary for the user and week, or ErrSummaryNotFound.
	Get(ctx context.Context, userID int64, weekStart time.Time) (*UserSummary, error)
}

// Summarizer turns a week's stats into human-readable summary text. The
// production implementation may call an external model; a template-based one
// ships as the default.
type Summarizer interface {
	Summarize(ctx context.Context, stats WeekStats) (string, error)
}

// UserDirectory lists the users whose activity should be summarized.
type UserDirectory interface {
	ListActiveUsers(ctx context.Context) ([]User, error)
}
