package client

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/models"
)

type fakeAPI struct {
	mu       sync.Mutex
	profiles []models.Profile
	nextID   int
	err      error

	// When set, GetProfile blocks on the channel for its id.
	gates map[string]chan struct{}
}

func newFakeAPI(profiles ...models.Profile) *fakeAPI {
	return &fakeAPI{profiles: profiles, nextID: 100, gates: map[string]chan struct{}{}}
}

func (f *fakeAPI) failWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeAPI) ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	f.mu.Lock()
	gate := f.gates[id]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Profile{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Profile{}, f.err
	}
	for _, p := range f.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Profile{}, &APIError{Status: 404, Message: "Profile not found"}
}

func (f *fakeAPI) CreateProfile(ctx context.Context, form ProfileForm) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Profile{}, f.err
	}
	f.nextID++
	p := models.Profile{ID: strconv.Itoa(f.nextID), Name: form.Name, Title: form.Title, CreatedAt: time.Now()}
	f.profiles = append([]models.Profile{p}, f.profiles...)
	return p, nil
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, id string, form ProfileForm) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Profile{}, f.err
	}
	for i, p := range f.profiles {
		if p.ID == id {
			if form.Name != "" {
				p.Name = form.Name
			}
			f.profiles[i] = p
			return p, nil
		}
	}
	return models.Profile{}, &APIError{Status: 404, Message: "Profile not found"}
}

func (f *fakeAPI) DeleteProfile(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i, p := range f.profiles {
		if p.ID == id {
			f.profiles = append(f.profiles[:i], f.profiles[i+1:]...)
			return nil
		}
	}
	return &APIError{Status: 404, Message: "Profile not found"}
}

type toastRecorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *toastRecorder) Toast(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

func (r *toastRecorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.toasts))
	for _, t := range r.toasts {
		out = append(out, t.Title)
	}
	return out
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) statuses(op Op) []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Status, 0, len(l.states))
	for _, s := range l.states {
		out = append(out, s.StatusOf(op))
	}
	return out
}

func seedProfiles() []models.Profile {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Profile{
		{ID: "3", Name: "Carol", Title: "Designer", CreatedAt: base.Add(3 * time.Hour)},
		{ID: "2", Name: "Bob", Title: "Engineer", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "1", Name: "Ada", Title: "Engineer", CreatedAt: base.Add(time.Hour)},
	}
}

func ids(profiles []models.Profile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ID)
	}
	return out
}

func TestStore_FetchProfilesLifecycle(t *testing.T) {
	store := NewStore(newFakeAPI(seedProfiles()...))
	var log stateLog
	cancel := store.Subscribe(log.record)
	defer cancel()

	require.NoError(t, store.FetchProfiles(context.Background(), models.ProfileFilter{}))

	assert.Equal(t, []Status{StatusLoading, StatusSucceeded, StatusIdle}, log.statuses(OpFetch))
	assert.True(t, log.states[0].IsLoading)

	snap := store.Snapshot()
	assert.Equal(t, []string{"3", "2", "1"}, ids(snap.Profiles))
	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.Error)
}

func TestStore_FailureToastsAndResets(t *testing.T) {
	api := newFakeAPI()
	toasts := &toastRecorder{}
	store := NewStore(api, WithToaster(toasts))
	var log stateLog
	store.Subscribe(log.record)

	err := store.FetchProfile(context.Background(), "42")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, []Status{StatusLoading, StatusFailed, StatusIdle}, log.statuses(OpFetch))
	assert.Equal(t, "Profile not found", log.states[1].Error)
	assert.Empty(t, store.Snapshot().Error)
	assert.Equal(t, []string{"Profile Operation Error"}, toasts.titles())
	assert.Nil(t, store.Snapshot().CurrentProfile)
}

func TestStore_CreateUpdateDelete(t *testing.T) {
	api := newFakeAPI(seedProfiles()...)
	toasts := &toastRecorder{}
	store := NewStore(api, WithToaster(toasts))
	ctx := context.Background()
	require.NoError(t, store.FetchProfiles(ctx, models.ProfileFilter{}))

	created, err := store.CreateProfile(ctx, ProfileForm{Name: "Dora", Title: "Engineer"})
	require.NoError(t, err)
	snap := store.Snapshot()
	assert.Equal(t, []string{created.ID, "3", "2", "1"}, ids(snap.Profiles))
	require.NotNil(t, snap.CurrentProfile)
	assert.Equal(t, created.ID, snap.CurrentProfile.ID)
	assert.Equal(t, StatusIdle, snap.StatusOf(OpCreate))

	_, err = store.UpdateProfile(ctx, "2", ProfileForm{Name: "Robert"})
	require.NoError(t, err)
	snap = store.Snapshot()
	assert.Equal(t, "Robert", snap.Profiles[2].Name)
	assert.Equal(t, "2", snap.CurrentProfile.ID)

	require.NoError(t, store.DeleteProfile(ctx, "2"))
	snap = store.Snapshot()
	assert.Equal(t, []string{created.ID, "3", "1"}, ids(snap.Profiles))
	assert.Nil(t, snap.CurrentProfile)

	assert.Equal(t, []string{"Profile Created", "Profile Updated", "Profile Deleted"}, toasts.titles())
}

func TestStore_FailedMutationKeepsMirror(t *testing.T) {
	api := newFakeAPI(seedProfiles()...)
	store := NewStore(api)
	ctx := context.Background()
	require.NoError(t, store.FetchProfiles(ctx, models.ProfileFilter{}))

	api.failWith(&APIError{Status: 403, Message: "You can only delete your own profile"})
	err := store.DeleteProfile(ctx, "1")
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	snap := store.Snapshot()
	assert.Equal(t, []string{"3", "2", "1"}, ids(snap.Profiles))
	assert.Equal(t, StatusIdle, snap.StatusOf(OpDelete))
}

func TestStore_StaleFetchDiscarded(t *testing.T) {
	api := newFakeAPI(seedProfiles()...)
	slow := make(chan struct{})
	api.gates["1"] = slow
	store := NewStore(api)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- store.FetchProfile(ctx, "1") }()

	// Wait for the slow fetch to be in flight before superseding it.
	require.Eventually(t, func() bool {
		return store.Snapshot().StatusOf(OpFetch) == StatusLoading
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, store.FetchProfile(ctx, "2"))
	assert.Equal(t, "2", store.Snapshot().CurrentProfile.ID)

	close(slow)
	require.NoError(t, <-errc)

	snap := store.Snapshot()
	assert.Equal(t, "2", snap.CurrentProfile.ID)
	assert.Equal(t, StatusIdle, snap.StatusOf(OpFetch))
}

func TestStore_SetCurrentProfileSupersedesFetch(t *testing.T) {
	api := newFakeAPI(seedProfiles()...)
	slow := make(chan struct{})
	api.gates["1"] = slow
	store := NewStore(api)

	errc := make(chan error, 1)
	go func() { errc <- store.FetchProfile(context.Background(), "1") }()
	require.Eventually(t, func() bool {
		return store.Snapshot().StatusOf(OpFetch) == StatusLoading
	}, time.Second, 5*time.Millisecond)

	chosen := models.Profile{ID: "3", Name: "Carol"}
	store.SetCurrentProfile(&chosen)
	close(slow)
	require.NoError(t, <-errc)

	snap := store.Snapshot()
	require.NotNil(t, snap.CurrentProfile)
	assert.Equal(t, "3", snap.CurrentProfile.ID)
	assert.Equal(t, StatusIdle, snap.StatusOf(OpFetch))
}

func TestStore_CallTimeout(t *testing.T) {
	api := newFakeAPI(seedProfiles()...)
	api.gates["1"] = make(chan struct{})
	store := NewStore(api, WithCallTimeout(20*time.Millisecond))

	err := store.FetchProfile(context.Background(), "1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusIdle, store.Snapshot().StatusOf(OpFetch))
}

func TestStore_ResetAndUnsubscribe(t *testing.T) {
	store := NewStore(newFakeAPI())
	var log stateLog
	cancel := store.Subscribe(log.record)

	store.Reset()
	assert.Len(t, log.states, 1)

	cancel()
	store.Reset()
	assert.Len(t, log.states, 1)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "boom", ErrorMessage(errors.New("boom")))
	assert.Equal(t, "Profile not found", ErrorMessage(&APIError{Status: 404, Message: "Profile not found"}))
}
