package stackauth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// DirectoryAPI is the account/membership directory consumed by the linker and
// validator. Implementations live in the directory package (HTTP client) and
// directory/dirstore (embedded store). A failed call returns an error; there
// is no distinct "success: false" signal at this boundary.
type DirectoryAPI interface {
	Users() UserDirectory
	Projects() ProjectDirectory
	Memberships() MembershipDirectory
	ProviderConfigs() ProviderConfigDirectory
}

// UserFilter narrows user listings.
type UserFilter struct {
	Email string
	Phone string
}

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	Name string
}

// MembershipFilter narrows membership listings.
type MembershipFilter struct {
	UserID    string
	ProjectID string
}

type UserDirectory interface {
	Get(ctx context.Context, id string) (*User, error)
	GetAll(ctx context.Context, page, limit int, filter UserFilter) ([]*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id string) error
}

type ProjectDirectory interface {
	Get(ctx context.Context, id string) (*Project, error)
	GetAll(ctx context.Context, page, limit int, filter ProjectFilter) ([]*Project, error)
}

type MembershipDirectory interface {
	Get(ctx context.Context, id string) (*Membership, error)
	GetAll(ctx context.Context, page, limit int, filter MembershipFilter) ([]*Membership, error)
	Create(ctx context.Context, membership *Membership) (*Membership, error)
	Update(ctx context.Context, membership *Membership) (*Membership, error)
	Delete(ctx context.Context, id string) error
}

type ProviderConfigDirectory interface {
	Get(ctx context.Context, id string) (*ProviderConfig, error)
}

// ProviderAuth is the outcome of a successful provider verification call.
type ProviderAuth struct {
	Identity ExternalIdentity
	// AccessToken is the provider-issued access token; its claims embed the
	// provider session id.
	AccessToken string
	// SealedSession is the provider session sealed against the cookie
	// password; password and magic-link flows unseal it to recover the
	// session id.
	SealedSession string
}

// MagicAuth is a provider-issued one-time code bound to an email.
type MagicAuth struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// IdentityProvider is the external identity provider consumed by the method
// adapters. The workos package provides the production implementation.
type IdentityProvider interface {
	AuthenticateWithPassword(ctx context.Context, email, password string) (*ProviderAuth, error)
	// SignUpWithPassword provisions a password-backed identity and
	// authenticates it in one step.
	SignUpWithPassword(ctx context.Context, email, password, firstName, lastName string) (*ProviderAuth, error)
	AuthenticateWithCode(ctx context.Context, code string) (*ProviderAuth, error)
	CreateMagicAuth(ctx context.Context, email string) (*MagicAuth, error)
	AuthenticateWithMagicAuth(ctx context.Context, email, code string) (*ProviderAuth, error)
	// SessionFromCookie unseals a sealed session and returns the provider
	// session id.
	SessionFromCookie(ctx context.Context, sealed string) (string, error)
	// AuthorizationURL mints a provider authorization URL for an OAuth
	// provider name and redirect target.
	AuthorizationURL(provider, redirectURL string) (string, error)
	// LogoutURL mints a provider logout URL scoped to a session id.
	LogoutURL(sessionID, returnTo string) (string, error)
	// DeleteUser removes a provisioned identity. Used as the compensating
	// action when a directory write fails after the identity exists.
	DeleteUser(ctx context.Context, externalID string) error
}

// TokenService signs and verifies session claims against a shared secret.
type TokenService interface {
	Sign(claims *SessionClaims) (string, error)
	Verify(token string) (*SessionClaims, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
