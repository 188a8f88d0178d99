// Package store holds the authoritative collection of profiles behind a
// repository interface so the HTTP layer never depends on a storage choice.
package store

import (
	"context"
	"strconv"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/models"
)

// ErrProfileNotFound is returned by every repository for unknown ids.
var ErrProfileNotFound = apperrors.NotFound("Profile")

// ProfileRepository is the capability set the services need from storage.
// List returns profiles most-recently-created first. Insert assigns the id
// and creation time and returns the stored record.
type ProfileRepository interface {
	List(ctx context.Context) ([]models.Profile, error)
	Get(ctx context.Context, id string) (models.Profile, error)
	Insert(ctx context.Context, profile models.Profile) (models.Profile, error)
	Update(ctx context.Context, id string, patch models.ProfilePatch) (models.Profile, error)
	Remove(ctx context.Context, id string) error
}

// nextID returns max(numeric ids)+1 as a string. Ids that are not all
// digits are ignored.
func nextID(ids []string) string {
	highest := 0
	for _, id := range ids {
		if !isDigits(id) {
			continue
		}
		n, err := strconv.Atoi(id)
		if err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
