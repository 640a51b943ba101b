package stackauth

import (
	"github.com/goliatone/go-router"
)

// OAuth provider names accepted on the wire, mapped to the identity
// provider's connection codes.
var oauthProviders = map[string]string{
	"apple":     "AppleOAuth",
	"google":    "GoogleOAuth",
	"microsoft": "MicrosoftOAuth",
	"github":    "GithubOAuth",
}

// ProviderCode maps a public provider name to the identity provider's
// connection code.
func ProviderCode(name string) (string, error) {
	code, ok := oauthProviders[name]
	if !ok {
		return "", ErrProviderNotSupported
	}
	return code, nil
}

// OAuthFlow provides the authorization-code verification steps. The provider
// name comes from the `:provider` route parameter.
type OAuthFlow struct {
	flowDeps
}

// Prompt resolves the authorization URL for the named provider and leaves it
// in locals under LocalsAuthURL. The redirect target is checked against the
// project allow-list before the provider is contacted.
func (f *OAuthFlow) Prompt() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			code, err := ProviderCode(ctx.Param("provider"))
			if err != nil {
				return f.abort(ctx, err)
			}

			redirect := ctx.Query("redirect_url")
			if redirect == "" {
				return f.abort(ctx, ErrRedirectRequired)
			}
			if !f.project.AllowsRedirect(redirect) {
				return f.abort(ctx, ErrRedirectNotAllowed)
			}

			authURL, err := f.provider.AuthorizationURL(code, redirect)
			if err != nil {
				return f.abort(ctx, UpstreamError(err, "unable to build authorization URL"))
			}

			ctx.Locals(LocalsAuthURL, authURL)
			return next(ctx)
		}
	}
}

// Callback exchanges the authorization code and runs the shared
// signup-or-signin algorithm. The RBAC gate runs before the code exchange so
// a denied attempt never provisions an identity.
func (f *OAuthFlow) Callback() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, err := ProviderCode(ctx.Param("provider")); err != nil {
				return f.abort(ctx, err)
			}

			code := ctx.Query("code")
			if code == "" {
				return f.abort(ctx, ErrCodeRequired)
			}

			role := ctx.Query("role")
			if err := RequireRole(f.policy.RBAC, f.policy.SignupEnabled, role); err != nil {
				return f.abort(ctx, err)
			}

			auth, err := f.provider.AuthenticateWithCode(ctx.Context(), code)
			if err != nil {
				return f.abort(ctx, err)
			}

			// OAuth exchanges expose the session id inside the access token
			// rather than a sealed cookie.
			sessionID, err := SessionIDFromAccessToken(auth.AccessToken)
			if err != nil {
				return f.abort(ctx, err)
			}

			res, err := f.linker.Link(ctx.Context(), LinkRequest{
				Project:       f.project,
				Policy:        f.policy,
				Identity:      auth.Identity,
				SessionID:     sessionID,
				RequestedRole: role,
			})
			if err != nil {
				return f.abort(ctx, err)
			}

			if err := f.complete(ctx, res); err != nil {
				return f.abort(ctx, err)
			}
			return next(ctx)
		}
	}
}
