// Package summary models the weekly activity summary the job service computes
// for each user from their Codeforces submission history.
package summary

import (
	"errors"
	"time"
)

// ErrSummaryNotFound indicates no summary exists for the requested user and week.
var ErrSummaryNotFound = errors.New("summary not found")

// User is a platform member whose Codeforces activity is summarized.
type User struct {
	ID     int64
	Handle string
}

// WeekStats aggregates one user's solving activity for a single week.
type WeekStats struct {
	UserID         int64
	Handle         string
	WeekStart      time.Time
	Solved         int
	Attempted      int
	SolvedProblems []string
}

// UserSummary is the persisted result of a weekly summary run for one user.
type UserSummary struct {
	UserID      int64
	Handle      string
	WeekStart   time.Time
	SolvedCount int
	Attempted   int
	Summary     string
	GeneratedAt time.Time
}

// WeekStartFor truncates t to the Monday 00:00 UTC that starts its week.
func WeekStartFor(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the previous Monday
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
