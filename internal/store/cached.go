package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/isdelr/profileapp-be/internal/models"
)

// KV is the subset of the cache client CachedStore needs.
type KV interface {
	Get(ctx context.Context, key string) []byte
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// CachedStore caches single-profile reads in front of another repository.
// Listing always goes to the backing store.
//
// Each id carries a generation bumped by every write. A read only fills the
// cache when the generation it started under is still current, so a read
// racing an update or delete cannot put the old record back.
type CachedStore struct {
	next ProfileRepository
	kv   KV
	ttl  time.Duration

	mu   sync.Mutex
	gens map[string]uint64
}

var _ ProfileRepository = (*CachedStore)(nil)

// NewCachedStore wraps next with a read cache.
func NewCachedStore(next ProfileRepository, kv KV, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, kv: kv, ttl: ttl, gens: make(map[string]uint64)}
}

func cacheKey(id string) string { return "profile:" + id }

func (s *CachedStore) List(ctx context.Context) ([]models.Profile, error) {
	return s.next.List(ctx)
}

func (s *CachedStore) Get(ctx context.Context, id string) (models.Profile, error) {
	if b := s.kv.Get(ctx, cacheKey(id)); b != nil {
		var p models.Profile
		if err := json.Unmarshal(b, &p); err == nil {
			return p, nil
		}
		s.kv.Delete(ctx, cacheKey(id))
	}

	gen := s.generation(id)
	p, err := s.next.Get(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	s.fill(ctx, p, gen)
	return p, nil
}

func (s *CachedStore) Insert(ctx context.Context, profile models.Profile) (models.Profile, error) {
	p, err := s.next.Insert(ctx, profile)
	if err != nil {
		return models.Profile{}, err
	}
	s.put(ctx, p)
	return p, nil
}

func (s *CachedStore) Update(ctx context.Context, id string, patch models.ProfilePatch) (models.Profile, error) {
	p, err := s.next.Update(ctx, id, patch)
	s.invalidate(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

func (s *CachedStore) Remove(ctx context.Context, id string) error {
	err := s.next.Remove(ctx, id)
	s.invalidate(ctx, id)
	return err
}

func (s *CachedStore) generation(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[id]
}

// fill caches p unless a write to it happened since gen was read.
func (s *CachedStore) fill(ctx context.Context, p models.Profile, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[p.ID] != gen {
		return
	}
	s.put(ctx, p)
}

// invalidate runs after the backing write has landed.
func (s *CachedStore) invalidate(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[id]++
	s.kv.Delete(ctx, cacheKey(id))
}

func (s *CachedStore) put(ctx context.Context, p models.Profile) {
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	s.kv.Set(ctx, cacheKey(p.ID), b, s.ttl)
}
