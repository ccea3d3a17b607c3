package contestwatch

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/domain/notification"
	"github.com/cfpulse/cfpulse/internal/infra/codeforces"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

type fakeLister struct {
	mu       sync.Mutex
	contests []codeforces.Contest
	err      error
	calls    int
}

func (f *fakeLister) ContestList(ctx context.Context) ([]codeforces.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.contests, nil
}

type fakeCache struct {
	mu       sync.Mutex
	contests []codeforces.Contest
	hit      bool
}

func (f *fakeCache) Get(ctx context.Context) ([]codeforces.Contest, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contests, f.hit, nil
}

func (f *fakeCache) Set(ctx context.Context, contests []codeforces.Contest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contests, f.hit = contests, true
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []events.DomainEvent
	err       error
}

func (f *fakePublisher) PublishDomainEvent(ctx context.Context, event events.DomainEvent, opts ...events.PublishOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

var watchNow = time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)

func contest(id int64, name, phase string, startsIn time.Duration) codeforces.Contest {
	return codeforces.Contest{
		ID:               id,
		Name:             name,
		Phase:            phase,
		StartTimeSeconds: watchNow.Add(startsIn).Unix(),
		DurationSeconds:  7200,
	}
}

func newTestWatcher(lister ContestLister, cache ContestCache, pub events.DomainEventPublisher) *Watcher {
	log := logger.New(os.Stdout, logger.LevelError, "test", nil)
	w := NewWatcher(lister, cache, pub, log, noop.NewTracerProvider().Tracer("test"))
	w.now = func() time.Time { return watchNow }
	return w
}

func TestPoll_AnnouncesContestsInWindow(t *testing.T) {
	lister := &fakeLister{contests: []codeforces.Contest{
		contest(1, "Starting Soon", "BEFORE", 2*time.Hour),
		contest(2, "Too Far Out", "BEFORE", 48*time.Hour),
		contest(3, "Already Running", "CODING", -time.Hour),
		contest(4, "Long Gone", "FINISHED", -240*time.Hour),
	}}
	pub := &fakePublisher{}
	w := newTestWatcher(lister, &fakeCache{}, pub)

	require.NoError(t, w.poll(context.Background()))

	require.Equal(t, 1, pub.count())
	evt := pub.published[0]
	assert.Equal(t, notification.EventTypeContestReminder, evt.Type)
	assert.Equal(t, "contest:1", evt.Key)

	payload, ok := evt.Payload.(notification.ContestReminderEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1), payload.ContestID)
	assert.Equal(t, "Starting Soon", payload.Name)
}

func TestPoll_DoesNotReannounce(t *testing.T) {
	lister := &fakeLister{contests: []codeforces.Contest{
		contest(1, "Starting Soon", "BEFORE", 2*time.Hour),
	}}
	pub := &fakePublisher{}
	w := newTestWatcher(lister, &fakeCache{}, pub)

	require.NoError(t, w.poll(context.Background()))
	require.NoError(t, w.poll(context.Background()))

	assert.Equal(t, 1, pub.count())
}

func TestPoll_PublishFailureRetriesNextCycle(t *testing.T) {
	lister := &fakeLister{contests: []codeforces.Contest{
		contest(1, "Starting Soon", "BEFORE", 2*time.Hour),
	}}
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	w := newTestWatcher(lister, &fakeCache{}, pub)

	require.NoError(t, w.poll(context.Background()))
	assert.Equal(t, 0, pub.count())

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	require.NoError(t, w.poll(context.Background()))
	assert.Equal(t, 1, pub.count())
}

func TestLoadContests_ServesFromCache(t *testing.T) {
	lister := &fakeLister{}
	cache := &fakeCache{
		contests: []codeforces.Contest{contest(1, "Cached", "BEFORE", time.Hour)},
		hit:      true,
	}
	w := newTestWatcher(lister, cache, &fakePublisher{})

	contests, err := w.loadContests(context.Background())
	require.NoError(t, err)
	assert.Len(t, contests, 1)
	assert.Equal(t, 0, lister.calls, "cache hit must not reach the API")
}

func TestLoadContests_MissRefreshesCache(t *testing.T) {
	lister := &fakeLister{contests: []codeforces.Contest{
		contest(1, "Fresh", "BEFORE", time.Hour),
	}}
	cache := &fakeCache{}
	w := newTestWatcher(lister, cache, &fakePublisher{})

	contests, err := w.loadContests(context.Background())
	require.NoError(t, err)
	assert.Len(t, contests, 1)
	assert.Equal(t, 1, lister.calls)

	cache.mu.Lock()
	assert.True(t, cache.hit, "miss must repopulate the cache")
	cache.mu.Unlock()
}

func TestPoll_ListerFailurePropagates(t *testing.T) {
	lister := &fakeLister{err: errors.New("codeforces down")}
	w := newTestWatcher(lister, &fakeCache{}, &fakePublisher{})

	err := w.poll(context.Background())
	require.Error(t, err)
}
