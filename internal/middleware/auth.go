// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eduresolve/support-platform/internal/auth"
	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// SessionKey is the context key for the authenticated session.
	SessionKey ContextKey = "session"
)

// Session is the authenticated caller of a request.
type Session struct {
	UID   string
	Email string
	Name  string
	// Role is empty until the user has registered a profile.
	Role model.Role
}

// Actor returns the session as a lifecycle actor.
func (s *Session) Actor() lifecycle.Actor {
	return lifecycle.Actor{UID: s.UID, Name: s.Name}
}

// ProfileLookup resolves the stored profile of a verified user.
type ProfileLookup interface {
	GetUser(ctx context.Context, uid string) (*model.UserProfile, error)
}

// Auth verifies the bearer token and attaches a Session to the request context.
func Auth(verifier auth.Verifier, profiles ProfileLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			session := &Session{UID: id.UID, Email: id.Email, Name: id.Name}
			profile, err := profiles.GetUser(r.Context(), id.UID)
			switch {
			case err == nil:
				session.Role = profile.Role
				if profile.Name != "" {
					session.Name = profile.Name
				}
				if profile.Email != "" {
					session.Email = profile.Email
				}
			case !errors.Is(err, lifecycle.ErrNotFound):
				writeError(w, http.StatusInternalServerError, "failed to load user profile")
				return
			}

			annotateRequest(r.Context(), session)
			ctx := context.WithValue(r.Context(), SessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession gets the session from context.
func GetSession(ctx context.Context) *Session {
	if v, ok := ctx.Value(SessionKey).(*Session); ok {
		return v
	}
	return nil
}

// WithSession returns a context carrying s. Used by tests and internal callers.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// RequireRole rejects sessions whose role is not one of roles.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSession(r.Context())
			if session == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if session.Role == "" {
				writeError(w, http.StatusForbidden, "access denied: user profile not found")
				return
			}
			for _, role := range roles {
				if session.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "access denied: requires role "+string(roles[0]))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
