package stackauth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
)

// PasswordFlow provides the email/password verification steps. Both steps run
// as middlewares that leave the auth state in locals and hand off to the
// terminal handler.
type PasswordFlow struct {
	flowDeps
}

// SignupPayload is the password signup request body.
type SignupPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Validate checks payload shape; presence of email and password is reported
// separately as ErrCredentialsRequired.
func (p SignupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 0)),
	)
}

// SigninPayload is the password signin request body.
type SigninPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p SigninPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

// Signup provisions a provider identity from email/password and runs the
// orchestrator's signup branch. The signup and RBAC gates run before the
// provider is contacted, so a denied attempt never creates an identity.
func (f *PasswordFlow) Signup() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			var payload SignupPayload
			if err := ctx.Bind(&payload); err != nil {
				return f.abort(ctx, ErrCredentialsRequired)
			}
			if payload.Email == "" || payload.Password == "" {
				return f.abort(ctx, ErrCredentialsRequired)
			}
			if err := payload.Validate(); err != nil {
				return f.abort(ctx, invalidPayload(err))
			}

			if !f.policy.SignupEnabled {
				return f.abort(ctx, ErrSignupDisabled)
			}
			if err := RequireRole(f.policy.RBAC, f.policy.SignupEnabled, payload.Role); err != nil {
				return f.abort(ctx, err)
			}

			auth, err := f.provider.SignUpWithPassword(
				ctx.Context(),
				payload.Email,
				payload.Password,
				payload.FirstName,
				payload.LastName,
			)
			if err != nil {
				return f.abort(ctx, err)
			}

			sessionID, err := f.provider.SessionFromCookie(ctx.Context(), auth.SealedSession)
			if err != nil {
				return f.abort(ctx, UpstreamError(err, "unable to unseal provider session"))
			}

			res, err := f.linker.Signup(ctx.Context(), LinkRequest{
				Project:       f.project,
				Policy:        f.policy,
				Identity:      auth.Identity,
				SessionID:     sessionID,
				RequestedRole: payload.Role,
				FirstName:     payload.FirstName,
				LastName:      payload.LastName,
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

// Signin authenticates an existing provider identity and appends the minted
// provider session to the existing membership. A requested role is not
// honored here; the role on file wins.
func (f *PasswordFlow) Signin() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			var payload SigninPayload
			if err := ctx.Bind(&payload); err != nil {
				return f.abort(ctx, ErrCredentialsRequired)
			}
			if payload.Email == "" || payload.Password == "" {
				return f.abort(ctx, ErrCredentialsRequired)
			}
			if err := payload.Validate(); err != nil {
				return f.abort(ctx, invalidPayload(err))
			}

			auth, err := f.provider.AuthenticateWithPassword(ctx.Context(), payload.Email, payload.Password)
			if err != nil {
				return f.abort(ctx, err)
			}

			sessionID, err := f.provider.SessionFromCookie(ctx.Context(), auth.SealedSession)
			if err != nil {
				return f.abort(ctx, UpstreamError(err, "unable to unseal provider session"))
			}

			res, err := f.linker.Signin(ctx.Context(), LinkRequest{
				Project:   f.project,
				Policy:    f.policy,
				Identity:  auth.Identity,
				SessionID: sessionID,
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
