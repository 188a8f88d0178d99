package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/auth"
	"github.com/isdelr/profileapp-be/internal/services"
)

// UserHandler handles HTTP requests for accounts and sessions.
type UserHandler struct {
	service       services.UserServiceProvider
	tokens        *auth.TokenManager
	secureCookies bool
}

// NewUserHandler creates a new UserHandler. secureCookies marks the session
// cookie Secure and should be set in production.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.TokenManager, secureCookies bool) *UserHandler {
	return &UserHandler{service: service, tokens: tokens, secureCookies: secureCookies}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := decodeJSON(w, r, jsonBodyLimit, &payload); err != nil {
		writeError(w, err, "Server error")
		return
	}

	user, err := h.service.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		if apperrors.HTTPStatus(err) == http.StatusInternalServerError {
			log.Error().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		}
		writeError(w, err, "Server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": user.ID, "username": user.Username})
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := decodeJSON(w, r, jsonBodyLimit, &payload); err != nil {
		writeError(w, err, "Server error")
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
		} else if apperrors.HTTPStatus(err) == http.StatusInternalServerError {
			log.Error().Err(err).Str("username", payload.Username).Msg("Login failed")
		}
		writeError(w, err, "Server error")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		writeError(w, err, "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Expires:  time.Now().Add(h.tokens.TTL()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"id":       user.ID,
		"username": user.Username,
		"token":    token,
	})
}

// Logout revokes the presented token, if any, and clears the session cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := auth.ClaimsFrom(r.Context()); ok {
		if err := h.tokens.Revoke(r.Context(), claims); err != nil {
			log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to revoke token")
			writeError(w, err, "Failed to log out")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		writeError(w, apperrors.ErrUnauthorized, "")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load current user")
		}
		writeError(w, err, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
