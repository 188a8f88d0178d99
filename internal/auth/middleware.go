package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/apperrors"
)

type contextKey string

// UserClaimsKey is the context key for user claims.
const UserClaimsKey = contextKey("userClaims")

// TokenCookie is the cookie set at login as an alternative to the header.
const TokenCookie = "token"

// ClaimsFrom returns the authenticated identity attached by the middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*Claims)
	return claims, ok && claims != nil
}

// WithClaims attaches claims to ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// tokenFromRequest reads "Authorization: Bearer <token>", falling back to the
// token cookie. A present but malformed header is not rescued by the cookie.
func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return "", apperrors.ErrUnauthorized
		}
		token := strings.TrimSpace(header[len(prefix):])
		if token == "" {
			return "", apperrors.ErrUnauthorized
		}
		return token, nil
	}

	cookie, err := r.Cookie(TokenCookie)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrUnauthorized
	}
	return cookie.Value, nil
}

// Middleware rejects requests without a valid token with 401 and passes the
// claims down via context otherwise.
func (m *TokenManager) Middleware() func(http.Handler) http.Handler {
	return m.Require(apperrors.Write)
}

// Require is Middleware with a caller-chosen rejection body, for endpoints
// that answer in their own envelope.
func (m *TokenManager) Require(reject func(http.ResponseWriter, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := tokenFromRequest(r)
			if err != nil {
				reject(w, err)
				return
			}

			claims, err := m.Validate(r.Context(), tokenStr)
			if err != nil {
				if !errors.Is(err, apperrors.ErrUnauthorized) {
					log.Error().Err(err).Msg("Token validation failed")
				}
				reject(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Optional attaches claims when a valid token is present and never rejects.
func (m *TokenManager) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr, err := tokenFromRequest(r); err == nil {
				if claims, err := m.Validate(r.Context(), tokenStr); err == nil {
					r = r.WithContext(WithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
