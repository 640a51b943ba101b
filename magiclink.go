package stackauth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
)

// MagicLinkFlow provides the one-time-code verification steps.
type MagicLinkFlow struct {
	flowDeps
}

// MagicGeneratePayload is the magic-link generate request body.
type MagicGeneratePayload struct {
	Email string `json:"email"`
}

func (p MagicGeneratePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

// MagicVerifyPayload is the magic-link verify request body.
type MagicVerifyPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Role  string `json:"role,omitempty"`
}

func (p MagicVerifyPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Code, validation.Required),
	)
}

// Generate asks the provider to mint a one-time code for the email and leaves
// the result in locals under LocalsMagicAuth. The provider handles delivery;
// the caller decides what, if anything, to expose.
func (f *MagicLinkFlow) Generate() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			var payload MagicGeneratePayload
			if err := ctx.Bind(&payload); err != nil {
				return f.abort(ctx, invalidPayload(err))
			}
			if err := payload.Validate(); err != nil {
				return f.abort(ctx, invalidPayload(err))
			}

			magic, err := f.provider.CreateMagicAuth(ctx.Context(), payload.Email)
			if err != nil {
				return f.abort(ctx, err)
			}

			ctx.Locals(LocalsMagicAuth, magic)
			return next(ctx)
		}
	}
}

// Verify exchanges the one-time code and runs the shared signup-or-signin
// algorithm. The RBAC gate runs before the provider is contacted.
func (f *MagicLinkFlow) Verify() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			var payload MagicVerifyPayload
			if err := ctx.Bind(&payload); err != nil {
				return f.abort(ctx, invalidPayload(err))
			}
			if payload.Code == "" {
				return f.abort(ctx, ErrCodeRequired)
			}
			if err := payload.Validate(); err != nil {
				return f.abort(ctx, invalidPayload(err))
			}

			if err := RequireRole(f.policy.RBAC, f.policy.SignupEnabled, payload.Role); err != nil {
				return f.abort(ctx, err)
			}

			auth, err := f.provider.AuthenticateWithMagicAuth(ctx.Context(), payload.Email, payload.Code)
			if err != nil {
				return f.abort(ctx, err)
			}

			sessionID, err := f.provider.SessionFromCookie(ctx.Context(), auth.SealedSession)
			if err != nil {
				return f.abort(ctx, UpstreamError(err, "unable to unseal provider session"))
			}

			res, err := f.linker.Link(ctx.Context(), LinkRequest{
				Project:       f.project,
				Policy:        f.policy,
				Identity:      auth.Identity,
				SessionID:     sessionID,
				RequestedRole: payload.Role,
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
