package stackauth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeRoleRequired         = "auth_role_required"
	TextCodeRoleNotAllowed       = "auth_role_not_allowed"
	TextCodeRedirectRequired     = "auth_redirect_required"
	TextCodeRedirectNotAllowed   = "auth_redirect_not_allowed"
	TextCodeSignupDisabled       = "auth_signup_disabled"
	TextCodeUnauthorized         = "auth_unauthorized"
	TextCodeUserNotFound         = "auth_user_not_found"
	TextCodeMembershipNotFound   = "auth_membership_not_found"
	TextCodeTokenExpired         = "auth_token_expired"
	TextCodeTokenMalformed       = "auth_token_malformed"
	TextCodeCredentialsRequired  = "auth_credentials_required"
	TextCodeCodeRequired         = "auth_code_required"
	TextCodeProviderNotSupported = "auth_provider_not_supported"
)

// ErrRoleRequired is returned when RBAC is enabled, signup is enabled, and no
// role was requested.
var ErrRoleRequired = errors.New("role is required for RBAC", errors.CategoryBadInput).
	WithTextCode(TextCodeRoleRequired).
	WithCode(errors.CodeBadRequest)

// ErrRoleNotAllowed is returned when the requested role is not part of the
// project's RBAC policy.
var ErrRoleNotAllowed = errors.New("this role is not allowed for RBAC", errors.CategoryBadInput).
	WithTextCode(TextCodeRoleNotAllowed).
	WithCode(errors.CodeBadRequest)

// ErrRedirectRequired is returned when a redirect URL is missing from the
// request.
var ErrRedirectRequired = errors.New("redirect URL is required", errors.CategoryBadInput).
	WithTextCode(TextCodeRedirectRequired).
	WithCode(errors.CodeBadRequest)

// ErrRedirectNotAllowed is returned when a redirect URL is not a member of the
// project's allow-list.
var ErrRedirectNotAllowed = errors.New("redirect URL is not allowed", errors.CategoryBadInput).
	WithTextCode(TextCodeRedirectNotAllowed).
	WithCode(errors.CodeBadRequest)

// ErrSignupDisabled is returned when a new account would be provisioned but
// the project has signup disabled.
var ErrSignupDisabled = errors.New("signup is disabled, contact the administrator to get access", errors.CategoryAuth).
	WithTextCode(TextCodeSignupDisabled).
	WithCode(errors.CodeForbidden)

// ErrUnauthorized is returned for missing, invalid, or expired delivered
// tokens, and for membership lookups failing during validation.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned on sign-in when no local user exists for the
// verified identity's email.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrMembershipNotFound is returned on sign-in when the user has no membership
// in the project.
var ErrMembershipNotFound = errors.New("user not found in project", errors.CategoryNotFound).
	WithTextCode(TextCodeMembershipNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenExpired is returned when a delivered token is past its TTL.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a delivered token fails decoding or
// signature verification.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrCredentialsRequired is returned when a password flow is missing email or
// password.
var ErrCredentialsRequired = errors.New("email and password are required", errors.CategoryBadInput).
	WithTextCode(TextCodeCredentialsRequired).
	WithCode(errors.CodeBadRequest)

// ErrCodeRequired is returned when an OAuth callback or magic-link verify is
// missing its one-time code.
var ErrCodeRequired = errors.New("verification code is required", errors.CategoryBadInput).
	WithTextCode(TextCodeCodeRequired).
	WithCode(errors.CodeBadRequest)

// ErrProviderNotSupported is returned for an unknown OAuth provider name.
var ErrProviderNotSupported = errors.New("oauth provider not supported", errors.CategoryBadInput).
	WithTextCode(TextCodeProviderNotSupported).
	WithCode(errors.CodeBadRequest)

// UpstreamError wraps an unexpected directory or provider failure. Callers see
// a 500 regardless of the underlying cause.
func UpstreamError(err error, message string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, message).
		WithCode(errors.CodeInternal)
}

// ErrorSignal is the uniform failure payload passed to the caller's error
// channel at the adapter boundary.
type ErrorSignal struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// SignalFromError converts any error into an ErrorSignal. Rich errors keep
// their HTTP code and message, everything else collapses to a 500.
func SignalFromError(err error) ErrorSignal {
	var rich *errors.Error
	if errors.As(err, &rich) {
		status := rich.Code
		if status == 0 {
			status = errors.CodeInternal
		}
		return ErrorSignal{Status: status, Message: rich.Message}
	}
	return ErrorSignal{Status: errors.CodeInternal, Message: "an unexpected error occurred"}
}
