// Package contestwatch polls the Codeforces contest list and publishes a
// reminder event for each upcoming contest entering the reminder window.
// Publishing is at-least-once; the notification consumer's idempotency claim
// on the contest's event ID is what keeps users from seeing double reminders.
package contestwatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/domain/notification"
	"github.com/cfpulse/cfpulse/internal/infra/codeforces"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

const (
	defaultPollInterval   = 10 * time.Minute
	defaultReminderWindow = 24 * time.Hour
)

// ContestLister fetches the upstream contest list. *codeforces.Client satisfies it.
type ContestLister interface {
	ContestList(ctx context.Context) ([]codeforces.Contest, error)
}

// ContestCache caches the contest list between poll cycles.
// *codeforces.ContestCache satisfies it.
type ContestCache interface {
	Get(ctx context.Context) ([]codeforces.Contest, bool, error)
	Set(ctx context.Context, contests []codeforces.Contest) error
}

// Watcher periodically scans for contests starting soon and emits reminders.
type Watcher struct {
	lister    ContestLister
	cache     ContestCache
	publisher events.DomainEventPublisher

	pollInterval   time.Duration
	reminderWindow time.Duration

	// announced tracks contests already published this process lifetime. A
	// restart republishes; the consumer's idempotency claim absorbs that.
	announced map[int64]struct{}

	logger *logger.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPollInterval overrides how often the contest list is scanned.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithReminderWindow overrides how far ahead of a contest start reminders fire.
func WithReminderWindow(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.reminderWindow = d
		}
	}
}

// NewWatcher creates a contest watcher with default poll and reminder windows.
func NewWatcher(
	lister ContestLister,
	cache ContestCache,
	publisher events.DomainEventPublisher,
	logger *logger.Logger,
	tracer trace.Tracer,
	opts ...Option,
) *Watcher {
	w := &Watcher{
		lister:         lister,
		cache:          cache,
		publisher:      publisher,
		pollInterval:   defaultPollInterval,
		reminderWindow: defaultReminderWindow,
		announced:      make(map[int64]struct{}),
		logger:         logger.With("component", "contest_watcher"),
		tracer:         tracer,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled. The first poll happens
// immediately so a fresh deployment announces imminent contests without
// waiting a full interval.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info(ctx, "Contest watcher started",
		"poll_interval", w.pollInterval.String(),
		"reminder_window", w.reminderWindow.String(),
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx); err != nil {
			w.logger.Error(ctx, "Contest poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Contest watcher stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll runs one scan cycle: load the contest list cache-first, then publish a
// reminder for every unannounced contest starting within the window.
func (w *Watcher) poll(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "contest_watcher.poll")
	defer span.End()

	contests, err := w.loadContests(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("contests", len(contests)))

	now := w.now()
	deadline := now.Add(w.reminderWindow)
	for _, contest := range contests {
		if contest.Phase != "BEFORE" {
			continue
		}
		startsAt := contest.StartsAt()
		if startsAt.Before(now) || startsAt.After(deadline) {
			continue
		}
		if _, done := w.announced[contest.ID]; done {
			continue
		}

		evt := notification.NewContestReminderEvent(contest.ID, contest.Name, startsAt, contest.DurationSeconds)
		err := w.publisher.PublishDomainEvent(ctx,
			events.DomainEvent{
				Type:      notification.EventTypeContestReminder,
				Key:       notification.ContestEventID(contest.ID),
				Timestamp: evt.OccurredAt(),
				Payload:   evt,
			},
			events.WithKey(notification.ContestEventID(contest.ID)),
		)
		if err != nil {
			// Not marked announced, so the next cycle retries. Duplicate
			// publishes are harmless downstream.
			span.RecordError(err)
			w.logger.Error(ctx, "Failed to publish contest reminder",
				"contest_id", contest.ID,
				"error", err,
			)
			continue
		}

		w.announced[contest.ID] = struct{}{}
		w.logger.Info(ctx, "Contest reminder published",
			"contest_id", contest.ID,
			"name", contest.Name,
			"starts_at", startsAt.Format(time.RFC3339),
		)
	}
	return nil
}

// loadContests returns the contest list, serving from cache when possible and
// refreshing the cache on a miss. A cache write failure degrades to uncached
// operation rather than failing the poll.
func (w *Watcher) loadContests(ctx context.Context) ([]codeforces.Contest, error) {
	contests, hit, err := w.cache.Get(ctx)
	if err != nil {
		w.logger.Warn(ctx, "Contest cache unavailable, falling back to API", "error", err)
	} else if hit {
		return contests, nil
	}

	contests, err = w.lister.ContestList(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.cache.Set(ctx, contests); err != nil {
		w.logger.Warn(ctx, "Failed to refresh contest cache", "error", err)
	}
	return contests, nil
}
