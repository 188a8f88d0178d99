package client

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/isdelr/profileapp-be/internal/models"
)

// Status is the lifecycle of one kind of request.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Op names a kind of request tracked by the Store.
type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

const defaultCallTimeout = 15 * time.Second

// ProfileAPI is the subset of Client the Store drives.
type ProfileAPI interface {
	ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error)
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	CreateProfile(ctx context.Context, form ProfileForm) (models.Profile, error)
	UpdateProfile(ctx context.Context, id string, form ProfileForm) (models.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
}

// Toast is a user-facing notification raised when an operation finishes.
type Toast struct {
	Title       string
	Description string
	Destructive bool
}

// Toaster displays toasts.
type Toaster interface {
	Toast(Toast)
}

// State is an immutable view of the Store.
type State struct {
	Profiles       []models.Profile
	CurrentProfile *models.Profile
	IsLoading      bool
	Error          string
	Status         map[Op]Status
}

// StatusOf returns the status of op, idle when untracked.
func (s State) StatusOf(op Op) Status {
	if st, ok := s.Status[op]; ok {
		return st
	}
	return StatusIdle
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithToaster routes success and failure notifications to t.
func WithToaster(t Toaster) StoreOption {
	return func(s *Store) { s.toaster = t }
}

// WithCallTimeout bounds each API call made by the Store.
func WithCallTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.callTimeout = d }
}

var successToasts = map[Op]Toast{
	OpCreate: {Title: "Profile Created", Description: "The profile has been created successfully"},
	OpUpdate: {Title: "Profile Updated", Description: "The profile has been updated successfully"},
	OpDelete: {Title: "Profile Deleted", Description: "The profile has been deleted successfully"},
}

// Store mirrors server-side profiles for a client and tracks the status of
// requests against them. All methods are safe for concurrent use.
//
// Subscribers run synchronously after every change and must not call
// methods that modify the Store.
type Store struct {
	api         ProfileAPI
	toaster     Toaster
	callTimeout time.Duration

	// publishMu keeps notifications in commit order.
	publishMu sync.Mutex

	mu       sync.Mutex
	byID     map[string]models.Profile
	order    []string
	current  *models.Profile
	status   map[Op]Status
	errMsg   string
	inflight map[Op]int

	listGen    uint64
	currentGen uint64

	subs   map[int]func(State)
	nextID int
}

// NewStore creates an empty Store backed by api.
func NewStore(api ProfileAPI, opts ...StoreOption) *Store {
	s := &Store{
		api:         api,
		callTimeout: defaultCallTimeout,
		byID:        make(map[string]models.Profile),
		status:      make(map[Op]Status),
		inflight:    make(map[Op]int),
		subs:        make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive every new State. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current State.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Reset clears the error and returns every status to idle.
func (s *Store) Reset() {
	s.commit(func() {
		s.errMsg = ""
		for op := range s.status {
			s.status[op] = StatusIdle
		}
	})
}

// SetCurrentProfile selects p (nil clears) and discards any in-flight single fetch.
func (s *Store) SetCurrentProfile(p *models.Profile) {
	s.commit(func() {
		s.currentGen++
		if p == nil {
			s.current = nil
			return
		}
		cp := *p
		s.current = &cp
	})
}

// FetchProfiles replaces the mirror with the server's listing.
func (s *Store) FetchProfiles(ctx context.Context, filter models.ProfileFilter) error {
	var gen uint64
	s.begin(OpFetch, func() {
		s.listGen++
		gen = s.listGen
	})

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	profiles, err := s.api.ListProfiles(ctx, filter)

	s.finish(OpFetch, err, func() bool { return gen == s.listGen }, func() {
		s.byID = make(map[string]models.Profile, len(profiles))
		s.order = make([]string, 0, len(profiles))
		for _, p := range profiles {
			s.byID[p.ID] = p
			s.order = append(s.order, p.ID)
		}
	})
	return err
}

// FetchProfile loads one profile and makes it current.
func (s *Store) FetchProfile(ctx context.Context, id string) error {
	var gen uint64
	s.begin(OpFetch, func() {
		s.currentGen++
		gen = s.currentGen
	})

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	profile, err := s.api.GetProfile(ctx, id)

	s.finish(OpFetch, err, func() bool { return gen == s.currentGen }, func() {
		if _, ok := s.byID[profile.ID]; ok {
			s.byID[profile.ID] = profile
		}
		s.current = &profile
	})
	return err
}

// CreateProfile submits form; the new profile goes first and becomes current.
func (s *Store) CreateProfile(ctx context.Context, form ProfileForm) (models.Profile, error) {
	s.begin(OpCreate, nil)

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	profile, err := s.api.CreateProfile(ctx, form)

	s.finish(OpCreate, err, nil, func() {
		s.putFront(profile)
		cp := profile
		s.current = &cp
	})
	return profile, err
}

// UpdateProfile applies form to id and refreshes the mirror and current profile.
func (s *Store) UpdateProfile(ctx context.Context, id string, form ProfileForm) (models.Profile, error) {
	s.begin(OpUpdate, nil)

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	profile, err := s.api.UpdateProfile(ctx, id, form)

	s.finish(OpUpdate, err, nil, func() {
		if _, ok := s.byID[profile.ID]; ok {
			s.byID[profile.ID] = profile
		}
		cp := profile
		s.current = &cp
	})
	return profile, err
}

// DeleteProfile removes id on the server and from the mirror.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	s.begin(OpDelete, nil)

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	err := s.api.DeleteProfile(ctx, id)

	s.finish(OpDelete, err, nil, func() {
		s.removeLocked(id)
	})
	return err
}

func (s *Store) begin(op Op, mutate func()) {
	s.commit(func() {
		s.inflight[op]++
		s.status[op] = StatusLoading
		s.errMsg = ""
		if mutate != nil {
			mutate()
		}
	})
}

// finish records the outcome of op. When current reports false the response
// is stale and only the in-flight count changes.
func (s *Store) finish(op Op, err error, current func() bool, apply func()) {
	var toast *Toast
	terminal := true

	s.commit(func() {
		s.inflight[op]--
		if current != nil && !current() {
			terminal = false
			if s.inflight[op] == 0 && s.status[op] == StatusLoading {
				s.status[op] = StatusIdle
			}
			return
		}
		if err != nil {
			s.status[op] = StatusFailed
			s.errMsg = ErrorMessage(err)
			toast = &Toast{Title: "Profile Operation Error", Description: s.errMsg, Destructive: true}
			return
		}
		apply()
		s.status[op] = StatusSucceeded
		if t, ok := successToasts[op]; ok {
			toast = &t
		}
	})
	if !terminal {
		return
	}

	if toast != nil && s.toaster != nil {
		s.toaster.Toast(*toast)
	}

	s.commit(func() {
		if s.status[op] == StatusSucceeded || s.status[op] == StatusFailed {
			s.status[op] = StatusIdle
		}
		if err != nil {
			s.errMsg = ""
		}
	})
}

func (s *Store) commit(mutate func()) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	mutate()
	snap := s.snapshotLocked()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() State {
	st := State{
		Profiles: make([]models.Profile, 0, len(s.order)),
		Error:    s.errMsg,
		Status:   make(map[Op]Status, len(s.status)),
	}
	for _, id := range s.order {
		st.Profiles = append(st.Profiles, s.byID[id])
	}
	if s.current != nil {
		cp := *s.current
		st.CurrentProfile = &cp
	}
	for op, status := range s.status {
		st.Status[op] = status
		if status == StatusLoading {
			st.IsLoading = true
		}
	}
	return st
}

func (s *Store) putFront(p models.Profile) {
	if _, ok := s.byID[p.ID]; ok {
		s.byID[p.ID] = p
		return
	}
	s.byID[p.ID] = p
	s.order = append([]string{p.ID}, s.order...)
}

// putSorted inserts p by CreatedAt, newest first, or replaces it in place.
func (s *Store) putSorted(p models.Profile) {
	if _, ok := s.byID[p.ID]; ok {
		s.byID[p.ID] = p
		return
	}
	s.byID[p.ID] = p
	i := sort.Search(len(s.order), func(i int) bool {
		return !s.byID[s.order[i]].CreatedAt.After(p.CreatedAt)
	})
	s.order = append(s.order, "")
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = p.ID
}

func (s *Store) removeLocked(id string) {
	if _, ok := s.byID[id]; ok {
		delete(s.byID, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
}
