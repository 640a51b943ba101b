package stackauth

import (
	"github.com/goliatone/go-router"
)

// SessionValidator decodes delivered tokens, checks them against the
// membership on file, and handles logout.
type SessionValidator struct {
	flowDeps
	api DirectoryAPI
}

// Validate decodes the delivered token (Authorization header first, cookie
// second), confirms the membership still exists, is active, and owns the
// token's provider session, then leaves the auth state in locals. Every
// failure mode collapses to ErrUnauthorized; callers learn nothing about
// which check failed.
func (v *SessionValidator) Validate() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, err := v.delivery.Decode(ctx)
			if err != nil {
				return v.abort(ctx, ErrUnauthorized)
			}

			membership, err := v.api.Memberships().Get(ctx.Context(), claims.MembershipID)
			if err != nil || membership == nil {
				return v.abort(ctx, ErrUnauthorized)
			}
			if !membership.IsActive {
				return v.abort(ctx, ErrUnauthorized)
			}
			if !containsString(membership.SessionIDs, claims.SessionID) {
				return v.abort(ctx, ErrUnauthorized)
			}

			SetAuthState(ctx, &AuthState{
				SessionID:    claims.SessionID,
				MembershipID: membership.ID,
				Role:         membership.Role,
			})
			return next(ctx)
		}
	}
}

// Logout clears the token cookie and resolves the provider logout URL for the
// validated session, leaving it in locals under LocalsLogoutURL. It must run
// after Validate. The return target is checked against the project logout
// allow-list.
func (v *SessionValidator) Logout() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			state, ok := AuthStateFromRouter(ctx)
			if !ok {
				return v.abort(ctx, ErrUnauthorized)
			}

			returnTo := ctx.Query("redirect_url")
			if returnTo == "" {
				return v.abort(ctx, ErrRedirectRequired)
			}
			if !v.project.AllowsLogout(returnTo) {
				return v.abort(ctx, ErrRedirectNotAllowed)
			}

			v.delivery.Clear(ctx)

			logoutURL, err := v.provider.LogoutURL(state.SessionID, returnTo)
			if err != nil {
				return v.abort(ctx, UpstreamError(err, "unable to build logout URL"))
			}

			ctx.Locals(LocalsLogoutURL, logoutURL)
			return next(ctx)
		}
	}
}
