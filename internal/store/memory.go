package store

import (
	"context"
	"sync"
	"time"

	"github.com/isdelr/profileapp-be/internal/models"
)

// MemoryStore keeps profiles in a process-local slice, newest first.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles []models.Profile
	now      func() time.Time
}

var _ ProfileRepository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Profile, len(s.profiles))
	copy(out, s.profiles)
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.profiles[i], nil
	}
	return models.Profile{}, ErrProfileNotFound
}

func (s *MemoryStore) Insert(ctx context.Context, profile models.Profile) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.profiles))
	for i, p := range s.profiles {
		ids[i] = p.ID
	}
	profile.ID = nextID(ids)
	profile.CreatedAt = s.now().UTC()

	s.profiles = append([]models.Profile{profile}, s.profiles...)
	return profile, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch models.ProfilePatch) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Profile{}, ErrProfileNotFound
	}
	s.profiles[i] = patch.Apply(s.profiles[i])
	return s.profiles[i], nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrProfileNotFound
	}
	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	return nil
}

func (s *MemoryStore) indexOf(id string) int {
	for i, p := range s.profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}
