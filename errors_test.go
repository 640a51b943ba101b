package stackauth_test

import (
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	stackauth "github.com/embos/go-stack-auth"
)

func TestSentinelErrorCodes(t *testing.T) {
	cases := []struct {
		err      *errors.Error
		code     int
		textCode string
	}{
		{stackauth.ErrRoleRequired, errors.CodeBadRequest, stackauth.TextCodeRoleRequired},
		{stackauth.ErrRoleNotAllowed, errors.CodeBadRequest, stackauth.TextCodeRoleNotAllowed},
		{stackauth.ErrRedirectRequired, errors.CodeBadRequest, stackauth.TextCodeRedirectRequired},
		{stackauth.ErrRedirectNotAllowed, errors.CodeBadRequest, stackauth.TextCodeRedirectNotAllowed},
		{stackauth.ErrSignupDisabled, errors.CodeForbidden, stackauth.TextCodeSignupDisabled},
		{stackauth.ErrUnauthorized, errors.CodeUnauthorized, stackauth.TextCodeUnauthorized},
		{stackauth.ErrUserNotFound, errors.CodeNotFound, stackauth.TextCodeUserNotFound},
		{stackauth.ErrMembershipNotFound, errors.CodeNotFound, stackauth.TextCodeMembershipNotFound},
		{stackauth.ErrTokenExpired, errors.CodeUnauthorized, stackauth.TextCodeTokenExpired},
		{stackauth.ErrTokenMalformed, errors.CodeUnauthorized, stackauth.TextCodeTokenMalformed},
		{stackauth.ErrCredentialsRequired, errors.CodeBadRequest, stackauth.TextCodeCredentialsRequired},
		{stackauth.ErrCodeRequired, errors.CodeBadRequest, stackauth.TextCodeCodeRequired},
		{stackauth.ErrProviderNotSupported, errors.CodeBadRequest, stackauth.TextCodeProviderNotSupported},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code, tc.textCode)
		assert.Equal(t, tc.textCode, tc.err.TextCode)
	}
}

func TestSignalFromError(t *testing.T) {
	sig := stackauth.SignalFromError(stackauth.ErrSignupDisabled)
	assert.Equal(t, errors.CodeForbidden, sig.Status)
	assert.Equal(t, "signup is disabled, contact the administrator to get access", sig.Message)

	sig = stackauth.SignalFromError(stackauth.UpstreamError(assert.AnError, "failed to fetch user data"))
	assert.Equal(t, errors.CodeInternal, sig.Status)
	assert.Equal(t, "failed to fetch user data", sig.Message)

	// Unknown errors never leak their message.
	sig = stackauth.SignalFromError(assert.AnError)
	assert.Equal(t, errors.CodeInternal, sig.Status)
	assert.Equal(t, "an unexpected error occurred", sig.Message)
}

func TestProviderCode(t *testing.T) {
	for name, want := range map[string]string{
		"apple":     "AppleOAuth",
		"google":    "GoogleOAuth",
		"microsoft": "MicrosoftOAuth",
		"github":    "GithubOAuth",
	} {
		code, err := stackauth.ProviderCode(name)
		assert.NoError(t, err)
		assert.Equal(t, want, code)
	}

	_, err := stackauth.ProviderCode("myspace")
	assert.ErrorIs(t, err, stackauth.ErrProviderNotSupported)
}
