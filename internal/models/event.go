package models

import "time"

// Event represents a loggable action in the system.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "profile.create", "user.register"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	ProfileID *string   `json:"profileId,omitempty"` // Nullable for account-level events
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Change-feed actions broadcast to live clients.
const (
	ActionProfileCreated = "profile.created"
	ActionProfileUpdated = "profile.updated"
	ActionProfileDeleted = "profile.deleted"
)
