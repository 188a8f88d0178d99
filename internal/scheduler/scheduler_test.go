package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/profileapp-be/internal/models"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *eventRecorder) CreateEvent(ctx context.Context, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	return nil, nil
}

type refsFunc func(ctx context.Context) (map[string]bool, error)

func (f refsFunc) ReferencedUploads(ctx context.Context) (map[string]bool, error) { return f(ctx) }

type fakeSweeper struct {
	gotRefs  map[string]bool
	gotGrace time.Duration
	removed  int
}

func (s *fakeSweeper) Sweep(referenced map[string]bool, grace time.Duration) (int, error) {
	s.gotRefs, s.gotGrace = referenced, grace
	return s.removed, nil
}

type fakePurger struct{ calls int }

func (p *fakePurger) Purge(ctx context.Context, now time.Time) (int64, error) {
	p.calls++
	return 3, nil
}

func TestUploadSweepJob(t *testing.T) {
	events := &eventRecorder{}
	s := New(events)
	refs := map[string]bool{"image-1-2.png": true}
	sweeper := &fakeSweeper{removed: 2}

	require.NoError(t, s.Add(JobUploadSweep, "@every 1h", UploadSweep(
		refsFunc(func(context.Context) (map[string]bool, error) { return refs, nil }),
		sweeper, 30*time.Minute,
	)))

	require.NoError(t, s.RunNow(context.Background(), JobUploadSweep))
	assert.Equal(t, refs, sweeper.gotRefs)
	assert.Equal(t, 30*time.Minute, sweeper.gotGrace)

	require.Len(t, events.events, 1)
	assert.Equal(t, "job.upload_sweep", events.events[0].Type)
	assert.Equal(t, "info", events.events[0].Level)
	assert.Equal(t, "Removed 2 orphaned upload(s)", events.events[0].Message)
}

func TestUploadSweepJob_NothingRemovedRecordsNothing(t *testing.T) {
	events := &eventRecorder{}
	s := New(events)
	require.NoError(t, s.Add(JobUploadSweep, "@every 1h", UploadSweep(
		refsFunc(func(context.Context) (map[string]bool, error) { return nil, nil }),
		&fakeSweeper{}, time.Hour,
	)))

	require.NoError(t, s.RunNow(context.Background(), JobUploadSweep))
	assert.Empty(t, events.events)
}

func TestFailedJobRecordsErrorEvent(t *testing.T) {
	events := &eventRecorder{}
	s := New(events)
	boom := errors.New("database is locked")
	require.NoError(t, s.Add(JobUploadSweep, "@every 1h", UploadSweep(
		refsFunc(func(context.Context) (map[string]bool, error) { return nil, boom }),
		&fakeSweeper{}, time.Hour,
	)))

	err := s.RunNow(context.Background(), JobUploadSweep)
	require.ErrorIs(t, err, boom)
	require.Len(t, events.events, 1)
	assert.Equal(t, "error", events.events[0].Level)
}

func TestTokenPurgeJob(t *testing.T) {
	s := New(nil)
	p := &fakePurger{}
	require.NoError(t, s.Add(JobTokenPurge, "0 */6 * * *", TokenPurge(p)))
	require.NoError(t, s.RunNow(context.Background(), JobTokenPurge))
	assert.Equal(t, 1, p.calls)
}

func TestAdd_Rejections(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) (string, error) { return "", nil }

	assert.Error(t, s.Add("bad", "every now and then", noop))
	require.NoError(t, s.Add("ok", "@daily", noop))
	assert.Error(t, s.Add("ok", "@hourly", noop))
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestStartStop(t *testing.T) {
	s := New(nil)
	ran := make(chan struct{}, 1)
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) (string, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return "", nil
	}))

	s.Start()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
