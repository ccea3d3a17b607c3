// Package summary implements the weekly summary computation the job service
// executes. For every active user it pulls recent Codeforces submissions,
// aggregates the current week's activity, renders summary text, and upserts
// the result keyed by (user, week). Re-running the computation for the same
// week overwrites rather than duplicates, which is what makes the job safe to
// trigger repeatedly.
package summary

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/cfpulse/cfpulse/internal/domain/summary"
	"github.com/cfpulse/cfpulse/internal/infra/codeforces"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

// submissionFetchCount bounds how much history one user fetch pulls. A week of
// activity fits comfortably; heavy users just get their newest submissions.
const submissionFetchCount = 200

// userConcurrency bounds parallel per-user work. The Codeforces client is
// rate limited anyway, so this mostly overlaps network wait with aggregation.
const userConcurrency = 4

// SubmissionSource fetches a user's recent submissions, newest first.
// *codeforces.Client satisfies it.
type SubmissionSource interface {
	UserStatus(ctx context.Context, handle string, count int) ([]codeforces.Submission, error)
}

// Service computes and persists weekly summaries for all active users.
type Service struct {
	directory  summary.UserDirectory
	source     SubmissionSource
	summarizer summary.Summarizer
	store      summary.Store

	logger *logger.Logger
	tracer trace.Tracer

	now func() time.Time
}

// NewService creates the weekly summary service.
func NewService(
	directory summary.UserDirectory,
	source SubmissionSource,
	summarizer summary.Summarizer,
	store summary.Store,
	logger *logger.Logger,
	tracer trace.Tracer,
) *Service {
	return &Service{
		directory:  directory,
		source:     source,
		summarizer: summarizer,
		store:      store,
		logger:     logger.With("component", "summary_service"),
		tracer:     tracer,
		now:        time.Now,
	}
}

// Run executes one full summary pass over all active users. A user whose
// fetch or persist fails is logged and skipped so one bad handle cannot sink
// the whole run; Run still reports an error when any user failed, so the
// caller settles the run as failed and the next trigger retries.
func (s *Service) Run(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "summary_service.run")
	defer span.End()

	weekStart := summary.WeekStartFor(s.now())
	span.SetAttributes(attribute.String("week_start", weekStart.Format("2006-01-02")))

	users, err := s.directory.ListActiveUsers(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing users failed")
		return fmt.Errorf("listing active users: %w", err)
	}
	s.logger.Info(ctx, "Summary run started", "week_start", weekStart.Format("2006-01-02"), "users", len(users))

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(userConcurrency)
	for _, user := range users {
		user := user
		g.Go(func() error {
			if err := s.summarizeUser(gctx, user, weekStart); err != nil {
				failed.Add(1)
				s.logger.Error(gctx, "Failed to summarize user",
					"user_id", user.ID,
					"handle", user.Handle,
					"error", err,
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n := failed.Load(); n > 0 {
		err := fmt.Errorf("summary run: %d of %d users failed", n, len(users))
		span.RecordError(err)
		span.SetStatus(codes.Error, "partial failure")
		return err
	}
	s.logger.Info(ctx, "Summary run completed", "users", len(users))
	return nil
}

// summarizeUser computes and persists one user's summary for the week.
func (s *Service) summarizeUser(ctx context.Context, user summary.User, weekStart time.Time) error {
	ctx, span := s.tracer.Start(ctx, "summary_service.summarize_user",
		trace.WithAttributes(attribute.String("handle", user.Handle)))
	defer span.End()

	submissions, err := s.source.UserStatus(ctx, user.Handle, submissionFetchCount)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("fetching submissions for %s: %w", user.Handle, err)
	}

	stats := computeWeekStats(user, weekStart, submissions)
	text, err := s.summarizer.Summarize(ctx, stats)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("summarizing %s: %w", user.Handle, err)
	}

	record := &summary.UserSummary{
		UserID:      user.ID,
		Handle:      user.Handle,
		WeekStart:   weekStart,
		SolvedCount: stats.Solved,
		Attempted:   stats.Attempted,
		Summary:     text,
		GeneratedAt: s.now().UTC(),
	}
	if err := s.store.Upsert(ctx, record); err != nil {
		span.RecordError(err)
		return fmt.Errorf("persisting summary for %s: %w", user.Handle, err)
	}

	s.logger.Debug(ctx, "User summarized",
		"handle", user.Handle,
		"solved", stats.Solved,
		"attempted", stats.Attempted,
	)
	return nil
}

// computeWeekStats aggregates the week's submissions. Solved counts distinct
// problems with at least one accepted verdict inside the week; Attempted
// counts distinct problems with any submission inside the week.
func computeWeekStats(user summary.User, weekStart time.Time, submissions []codeforces.Submission) summary.WeekStats {
	weekEnd := weekStart.AddDate(0, 0, 7)

	solved := make(map[string]struct{})
	attempted := make(map[string]struct{})
	var solvedNames []string
	for _, sub := range submissions {
		at := sub.SubmittedAt()
		if at.Before(weekStart) || !at.Before(weekEnd) {
			continue
		}
		key := fmt.Sprintf("%d%s", sub.Problem.ContestID, sub.Problem.Index)
		attempted[key] = struct{}{}
		if sub.Verdict == "OK" {
			if _, seen := solved[key]; !seen {
				solved[key] = struct{}{}
				solvedNames = append(solvedNames, sub.Problem.Name)
			}
		}
	}

	return summary.WeekStats{
		UserID:         user.ID,
		Handle:         user.Handle,
		WeekStart:      weekStart,
		Solved:         len(solved),
		Attempted:      len(attempted),
		SolvedProblems: solvedNames,
	}
}
