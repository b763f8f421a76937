package resources

import (
	"time"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
)

// EvaluateShare decides whether a share link grants access at the given
// instant. A disabled link is indistinguishable from a missing one, so both
// come back as not found. Expiration is strict: a link whose expires_at equals
// now is still valid. Links in authenticated mode additionally require a
// logged-in caller.
func EvaluateShare(state *ShareState, now time.Time, authenticated bool) error {
	if state == nil || !state.Enabled {
		return httpx.ErrNotFound
	}
	if state.ExpiresAt != nil && now.After(*state.ExpiresAt) {
		return httpx.ErrExpired
	}
	if state.Permission == ShareAuthenticated && !authenticated {
		return httpx.ErrUnauthorized
	}
	return nil
}
