package policy

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/speedissuesflow/sif/internal/shared"
)

// UserSource resolves the role for an authenticated user. Roles are loaded
// once per request; the session only carries the user id.
type UserSource interface {
	RoleByUserID(ctx context.Context, userID int64) (Role, error)
}

// Middleware wires capability checks into HTTP handlers. Denials are silent:
// the front-end hides affordances the role lacks, so a 403 here only fires on
// a hand-crafted request.
type Middleware struct {
	Users  UserSource
	Logger *slog.Logger
}

// RequireAuthenticated ensures a signed-in caller without any capability check.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUserID(r); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require ensures the current user's role grants every listed capability.
func (m Middleware) Require(caps ...Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(caps) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := CurrentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			role, err := m.Users.RoleByUserID(r.Context(), userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("policy resolve role", slog.Int64("user_id", userID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			for _, c := range caps {
				granted, err := Lookup(role, c)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("policy unknown capability", slog.String("capability", string(c)))
					}
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
				if !granted {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminPanel gates the configuration surface.
func (m Middleware) RequireAdminPanel(next http.Handler) http.Handler {
	return m.Require(CapAccessAdminPanel)(next)
}

// CurrentUserID extracts the authenticated user id from the request session.
func CurrentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
