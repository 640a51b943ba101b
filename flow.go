package stackauth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ErrorHandler short-circuits a failed adapter step. The default responds
// with the uniform {status, message} payload; applications can swap it for
// redirects or custom envelopes.
type ErrorHandler func(ctx router.Context, err error) error

// DefaultErrorHandler responds with the ErrorSignal derived from err.
func DefaultErrorHandler(ctx router.Context, err error) error {
	sig := SignalFromError(err)
	return ctx.JSON(sig.Status, sig)
}

// flowDeps is the collaborator set shared by the method adapters. Built by
// Auth after Init resolved the project and its policy.
type flowDeps struct {
	project  *Project
	policy   LinkPolicy
	provider IdentityProvider
	linker   *AccountLinker
	delivery *TokenDelivery
	logger   Logger
	fail     ErrorHandler
}

func (f flowDeps) abort(ctx router.Context, err error) error {
	f.logger.Debug("auth step aborted: %v", err)
	if f.fail != nil {
		return f.fail(ctx, err)
	}
	return DefaultErrorHandler(ctx, err)
}

// complete mints the delivered token for an orchestrator outcome and leaves
// the auth state in locals for the downstream handler.
func (f flowDeps) complete(ctx router.Context, res *LinkResult) error {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: res.User.ID},
		MembershipID:     res.Membership.ID,
		SessionID:        res.SessionID,
	}

	token, err := f.delivery.Issue(ctx, claims)
	if err != nil {
		return UpstreamError(err, "unable to issue session token")
	}

	SetAuthState(ctx, &AuthState{
		Token:        token,
		SessionID:    res.SessionID,
		MembershipID: res.Membership.ID,
		Role:         res.Membership.Role,
		User:         res.User,
	})
	return nil
}

func invalidPayload(err error) error {
	return errors.Wrap(err, errors.CategoryValidation, "invalid request payload").
		WithCode(errors.CodeBadRequest)
}
