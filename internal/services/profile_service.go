package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/models"
	"github.com/isdelr/profileapp-be/internal/store"
	"github.com/isdelr/profileapp-be/internal/upload"
)

// Change-feed actions published after each successful mutation.
const (
	ActionProfileCreated = models.ActionProfileCreated
	ActionProfileUpdated = models.ActionProfileUpdated
	ActionProfileDeleted = models.ActionProfileDeleted
)

// Notifier pushes change messages to connected live clients.
type Notifier interface {
	Publish(action string, payload interface{})
}

// ProfileServiceProvider defines the interface for profile services.
type ProfileServiceProvider interface {
	ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error)
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	CreateProfile(ctx context.Context, owner string, input models.ProfileInput) (models.Profile, error)
	UpdateProfile(ctx context.Context, actor, id string, patch models.ProfilePatch) (models.Profile, error)
	DeleteProfile(ctx context.Context, actor, id string) error
	ReferencedUploads(ctx context.Context) (map[string]bool, error)
}

// ProfileService provides business logic for profile management.
type ProfileService struct {
	repo         store.ProfileRepository
	eventService EventServiceProvider
	notifier     Notifier
	defaultImage string

	// mu serializes mutations so an ownership check and the write it guards
	// are never interleaved with another writer.
	mu sync.Mutex
}

// NewProfileService creates a new ProfileService. eventService and notifier may be nil.
func NewProfileService(repo store.ProfileRepository, eventService EventServiceProvider, notifier Notifier, defaultImage string) *ProfileService {
	return &ProfileService{
		repo:         repo,
		eventService: eventService,
		notifier:     notifier,
		defaultImage: defaultImage,
	}
}

// ListProfiles returns the profiles matching filter, newest first.
func (s *ProfileService) ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]models.Profile, 0, len(all))
	for _, p := range all {
		if filter.Matches(p) {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

// GetProfile retrieves a single profile by its ID.
func (s *ProfileService) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	return s.repo.Get(ctx, id)
}

// CreateProfile stores a new profile owned by owner.
func (s *ProfileService) CreateProfile(ctx context.Context, owner string, input models.ProfileInput) (models.Profile, error) {
	if owner == "" {
		return models.Profile{}, apperrors.ErrUnauthorized
	}

	input = trimInput(input)
	if err := validateStruct(input); err != nil {
		return models.Profile{}, err
	}
	if input.ImageURL == "" {
		input.ImageURL = s.defaultImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.repo.Insert(ctx, models.Profile{
		Name:     input.Name,
		Email:    input.Email,
		Title:    input.Title,
		Bio:      input.Bio,
		Website:  input.Website,
		ImageURL: input.ImageURL,
		Username: owner,
	})
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}

	s.record(ctx, EventProfileCreated, owner, profile.ID, fmt.Sprintf("Profile '%s' created", profile.Name))
	s.publish(ActionProfileCreated, profile)
	return profile, nil
}

// UpdateProfile merges patch into the profile identified by id. Only the
// owner may update; a rejected request leaves the record unchanged.
func (s *ProfileService) UpdateProfile(ctx context.Context, actor, id string, patch models.ProfilePatch) (models.Profile, error) {
	if actor == "" {
		return models.Profile{}, apperrors.ErrUnauthorized
	}

	patch = trimPatch(patch)
	if err := validatePatch(patch); err != nil {
		return models.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	if existing.Username != actor {
		return models.Profile{}, apperrors.Forbidden("You can only edit your own profile")
	}
	if patch.IsEmpty() {
		return existing, nil
	}

	profile, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to update profile %s: %w", id, err)
	}

	s.record(ctx, EventProfileUpdated, actor, profile.ID, fmt.Sprintf("Profile '%s' updated", profile.Name))
	s.publish(ActionProfileUpdated, profile)
	return profile, nil
}

// DeleteProfile removes the profile identified by id. Only the owner may delete.
func (s *ProfileService) DeleteProfile(ctx context.Context, actor, id string) error {
	if actor == "" {
		return apperrors.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Username != actor {
		return apperrors.Forbidden("You can only delete your own profile")
	}

	if err := s.repo.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}

	s.record(ctx, EventProfileDeleted, actor, id, fmt.Sprintf("Profile '%s' deleted", existing.Name))
	s.publish(ActionProfileDeleted, map[string]string{"id": id})
	return nil
}

// ReferencedUploads returns the names of uploaded files that some profile
// still points at.
func (s *ProfileService) ReferencedUploads(ctx context.Context) (map[string]bool, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if name := upload.NameFromURL(p.ImageURL); name != "" {
			refs[name] = true
		}
	}
	return refs, nil
}

func (s *ProfileService) record(ctx context.Context, eventType, actor, profileID, message string) {
	if s.eventService == nil {
		return
	}
	err := s.eventService.CreateEvent(ctx, models.Event{
		Type:      eventType,
		Message:   message,
		ProfileID: &profileID,
		Actor:     actor,
	})
	if err != nil {
		log.Warn().Err(err).Str("profile_id", profileID).Str("type", eventType).Msg("Failed to record event")
	}
}

func (s *ProfileService) publish(action string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Publish(action, payload)
	}
}

func trimInput(in models.ProfileInput) models.ProfileInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Title = strings.TrimSpace(in.Title)
	in.Bio = strings.TrimSpace(in.Bio)
	in.Website = strings.TrimSpace(in.Website)
	return in
}

func trimPatch(p models.ProfilePatch) models.ProfilePatch {
	for _, f := range []**string{&p.Name, &p.Email, &p.Title, &p.Bio, &p.Website} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
	return p
}

// validatePatch checks present values. Required fields may be changed but
// not blanked; website may be cleared.
func validatePatch(p models.ProfilePatch) error {
	fields := map[string]string{}
	for name, v := range map[string]*string{"name": p.Name, "email": p.Email, "title": p.Title, "bio": p.Bio} {
		if v != nil && *v == "" {
			fields[name] = label(name) + " is required"
		}
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}

	if p.Website != nil && *p.Website == "" {
		// An empty website clears the field; skip the url rule for it.
		p.Website = nil
	}
	return validateStruct(p)
}
