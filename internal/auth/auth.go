// Package auth identifies callers and guards admin routes.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
)

// AdminGroup is the group that grants write access
const AdminGroup = "admins"

var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("admin access required")
)

// User represents an authenticated user
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name"`
	Username string   `json:"username,omitempty"`
	Groups   []string `json:"groups"`
}

// IsAdmin reports whether the user belongs to AdminGroup
func (u *User) IsAdmin() bool {
	return u != nil && slices.Contains(u.Groups, AdminGroup)
}

// Provider authenticates requests for one auth mode
type Provider interface {
	// Authenticate returns the caller, or ErrUnauthorized when there is none
	Authenticate(r *http.Request) (*User, error)
	// Routes mounts login and logout endpoints
	Routes(r chi.Router)
}

type userKey struct{}

// WithUser returns a copy of ctx carrying u
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the user stored by Middleware, if any
func UserFrom(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey{}).(*User)
	return u, ok && u != nil
}

// Middleware attaches the caller to the request context. Anonymous requests pass through.
func Middleware(p Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := p.Authenticate(r)
			if err != nil {
				if !errors.Is(err, ErrUnauthorized) {
					logger.Warn("Authentication failed", "path", r.URL.Path, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFrom(r.Context())
		switch {
		case !ok:
			writeError(w, http.StatusUnauthorized, ErrUnauthorized)
		case !u.IsAdmin():
			writeError(w, http.StatusForbidden, ErrForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Me reports the current caller
func Me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "admin": u.IsAdmin()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
