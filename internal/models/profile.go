package models

import (
	"strings"
	"time"
)

// Profile is a user-authored portfolio entry.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Title     string    `json:"title"`
	Bio       string    `json:"bio"`
	Website   string    `json:"website,omitempty"`
	ImageURL  string    `json:"image_url"`
	Username  string    `json:"username"` // Owner; immutable after creation
	CreatedAt time.Time `json:"created_at"`
}

// ProfileInput holds the fields supplied when creating a profile.
type ProfileInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Title    string `json:"title" validate:"required,max=120"`
	Bio      string `json:"bio" validate:"required,max=5000"`
	Website  string `json:"website,omitempty" validate:"omitempty,url"`
	ImageURL string `json:"image_url,omitempty"`
}

// ProfilePatch is a partial update. Nil fields keep their stored value.
type ProfilePatch struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Title    *string `json:"title,omitempty" validate:"omitempty,max=120"`
	Bio      *string `json:"bio,omitempty" validate:"omitempty,max=5000"`
	Website  *string `json:"website,omitempty" validate:"omitempty,url"`
	ImageURL *string `json:"image_url,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Title == nil &&
		p.Bio == nil && p.Website == nil && p.ImageURL == nil
}

// Apply returns a copy of profile with the patch merged over it.
func (p ProfilePatch) Apply(profile Profile) Profile {
	if p.Name != nil {
		profile.Name = *p.Name
	}
	if p.Email != nil {
		profile.Email = *p.Email
	}
	if p.Title != nil {
		profile.Title = *p.Title
	}
	if p.Bio != nil {
		profile.Bio = *p.Bio
	}
	if p.Website != nil {
		profile.Website = *p.Website
	}
	if p.ImageURL != nil {
		profile.ImageURL = *p.ImageURL
	}
	return profile
}

// ProfileFilter narrows a profile listing. Zero value matches everything.
type ProfileFilter struct {
	Search string // case-insensitive substring over name and bio
	Title  string // exact title; "" or "all" disables
}

// Matches reports whether profile passes the filter.
func (f ProfileFilter) Matches(profile Profile) bool {
	if f.Title != "" && f.Title != "all" && profile.Title != f.Title {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(profile.Name), term) ||
		strings.Contains(strings.ToLower(profile.Bio), term)
}
