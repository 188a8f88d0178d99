package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/models"
)

var (
	// ErrUserNotFound is returned when no account exists for an id.
	ErrUserNotFound = apperrors.NotFound("User")

	errMissingFields      = apperrors.Invalid("Missing required fields")
	errMissingCredentials = apperrors.Invalid("Missing username or password")
	errUsernameTaken      = apperrors.Conflict("Username already exists")
	errInvalidCredentials = apperrors.Unauthorized("Invalid credentials")
)

const maxPasswordBytes = 72

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, email, password string) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// UserService provides business logic for user accounts.
type UserService struct {
	db           *sql.DB
	eventService EventServiceProvider
	cost         int
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, eventService EventServiceProvider) *UserService {
	return &UserService{db: db, eventService: eventService, cost: bcrypt.DefaultCost}
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, username, email, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// getUserByUsername retrieves a user including the password hash.
func (s *UserService) getUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?", username)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Register creates a new account, hashing the password.
func (s *UserService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return models.User{}, errMissingFields
	}
	if err := validate.Var(email, "email"); err != nil {
		return models.User{}, apperrors.NewValidationError(map[string]string{"email": "Email format is invalid"})
	}
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	if len(password) > maxPasswordBytes {
		return models.User{}, apperrors.NewValidationError(map[string]string{
			"password": fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes),
		})
	}

	if _, err := s.getUserByUsername(ctx, username); err == nil {
		return models.User{}, errUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return models.User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users(id, username, email, password_hash, created_at) VALUES(?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, string(hashedPassword), user.CreatedAt)
	if err != nil {
		// Lost a race with a concurrent registration.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.User{}, errUsernameTaken
		}
		return models.User{}, err
	}

	if s.eventService != nil {
		if err := s.eventService.CreateEvent(ctx, models.Event{
			Type:    EventUserRegistered,
			Message: fmt.Sprintf("User %s registered", user.Username),
			Actor:   user.Username,
		}); err != nil {
			log.Warn().Err(err).Str("username", user.Username).Msg("Failed to record registration event")
		}
	}
	return user, nil
}

// Authenticate verifies a user's credentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return models.User{}, errMissingCredentials
	}

	user, err := s.getUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, errInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}
