package models

import "time"

// User is an account that owns profiles. Profiles reference it by Username.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt; never serialized
	CreatedAt    time.Time `json:"createdAt"`
}
