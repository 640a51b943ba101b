package stackauth

import (
	"context"

	"github.com/goliatone/go-router"
)

// Router locals keys populated by the adapter steps.
const (
	LocalsAuth      = "auth"
	LocalsAuthURL   = "auth_url"
	LocalsLogoutURL = "logout_url"
	LocalsMagicAuth = "magic_auth"
)

// AuthState is the context carried by a request after a successful
// verification or validation step.
type AuthState struct {
	Token        string `json:"token,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	MembershipID string `json:"membership_id,omitempty"`
	Role         Role   `json:"role"`
	User         *User  `json:"user,omitempty"`
}

var authStateCtxKey = &contextKey{"auth-state"}

type contextKey struct {
	name string
}

// SetAuthState stores the state in router locals for downstream handlers.
func SetAuthState(ctx router.Context, state *AuthState) {
	ctx.Locals(LocalsAuth, state)
}

// AuthStateFromRouter finds the state left by a prior validate or verify
// step.
func AuthStateFromRouter(ctx router.Context) (*AuthState, bool) {
	raw := ctx.Locals(LocalsAuth)
	if raw == nil {
		return nil, false
	}
	state, ok := raw.(*AuthState)
	return state, ok
}

// WithAuthState sets the state in a standard context.
func WithAuthState(ctx context.Context, state *AuthState) context.Context {
	return context.WithValue(ctx, authStateCtxKey, state)
}

// AuthStateFromContext finds the state from a standard context.
func AuthStateFromContext(ctx context.Context) (*AuthState, bool) {
	state, ok := ctx.Value(authStateCtxKey).(*AuthState)
	return state, ok
}

// HasPermission reports whether the attached role carries the permission.
func (s *AuthState) HasPermission(permission string) bool {
	if s == nil {
		return false
	}
	return containsString(s.Role.Permissions, permission)
}
