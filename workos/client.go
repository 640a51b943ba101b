// Package workos implements the identity provider client against the WorkOS
// User Management API.
package workos

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/embos/go-stack-auth"
)

const (
	defaultBaseURL = "https://api.workos.com"

	grantPassword          = "password"
	grantAuthorizationCode = "authorization_code"
	grantMagicAuth         = "urn:workos:oauth:grant-type:magic-auth:code"
)

// Config holds the WorkOS client configuration.
type Config struct {
	ClientID string
	// APIKey is the WorkOS secret key, sent as a bearer token.
	APIKey string
	// CookiePassword seals and unseals provider sessions. Must be at least
	// 32 bytes.
	CookiePassword string

	BaseURL    string
	HTTPClient *http.Client
	Logger     stackauth.Logger
}

// Client talks to the WorkOS User Management API. It implements
// stackauth.IdentityProvider.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     stackauth.Logger
}

var _ stackauth.IdentityProvider = (*Client)(nil)

// New creates a WorkOS client.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.APIKey == "" {
		return nil, errConfig("client id and api key are required")
	}
	if len(cfg.CookiePassword) < minCookiePasswordLen {
		return nil, errConfig("cookie password must be at least 32 characters")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Client{config: cfg, httpClient: client, logger: logger}, nil
}

// Factory adapts New to the stackauth.ProviderFactory signature, mapping the
// resolved WorkOS credentials onto the client configuration.
func Factory(cookiePassword string, logger stackauth.Logger) stackauth.ProviderFactory {
	return func(cfg stackauth.WorkOSConfig) (stackauth.IdentityProvider, error) {
		return New(Config{
			ClientID:       cfg.ClientID,
			APIKey:         cfg.ClientSecret,
			CookiePassword: cookiePassword,
			Logger:         logger,
		})
	}
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type authenticateResponse struct {
	User          userResponse `json:"user"`
	AccessToken   string       `json:"access_token"`
	RefreshToken  string       `json:"refresh_token"`
	SealedSession string       `json:"sealed_session"`
}

// AuthenticateWithPassword exchanges email/password credentials for a
// provider session.
func (c *Client) AuthenticateWithPassword(ctx context.Context, email, password string) (*stackauth.ProviderAuth, error) {
	return c.authenticate(ctx, map[string]any{
		"grant_type": grantPassword,
		"email":      email,
		"password":   password,
	})
}

// SignUpWithPassword provisions a password-backed identity and authenticates
// it in one step.
func (c *Client) SignUpWithPassword(ctx context.Context, email, password, firstName, lastName string) (*stackauth.ProviderAuth, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if firstName != "" {
		body["first_name"] = firstName
	}
	if lastName != "" {
		body["last_name"] = lastName
	}

	var created userResponse
	if err := c.do(ctx, http.MethodPost, "/user_management/users", body, &created); err != nil {
		return nil, err
	}

	return c.AuthenticateWithPassword(ctx, email, password)
}

// AuthenticateWithCode exchanges an OAuth authorization code for a provider
// session.
func (c *Client) AuthenticateWithCode(ctx context.Context, code string) (*stackauth.ProviderAuth, error) {
	return c.authenticate(ctx, map[string]any{
		"grant_type": grantAuthorizationCode,
		"code":       code,
	})
}

// CreateMagicAuth asks the provider to mint and deliver a one-time code.
func (c *Client) CreateMagicAuth(ctx context.Context, email string) (*stackauth.MagicAuth, error) {
	var out stackauth.MagicAuth
	err := c.do(ctx, http.MethodPost, "/user_management/magic_auth", map[string]any{
		"email": email,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithMagicAuth exchanges a one-time code for a provider session.
func (c *Client) AuthenticateWithMagicAuth(ctx context.Context, email, code string) (*stackauth.ProviderAuth, error) {
	return c.authenticate(ctx, map[string]any{
		"grant_type": grantMagicAuth,
		"email":      email,
		"code":       code,
	})
}

// SessionFromCookie unseals a sealed session and returns the provider session
// id carried by its access token.
func (c *Client) SessionFromCookie(ctx context.Context, sealed string) (string, error) {
	payload, err := unseal(sealed, c.config.CookiePassword)
	if err != nil {
		return "", err
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		return "", errSession("sealed session payload is not valid JSON", err)
	}
	if data.AccessToken == "" {
		return "", errSession("sealed session has no access token", nil)
	}

	return stackauth.SessionIDFromAccessToken(data.AccessToken)
}

// AuthorizationURL mints the hosted authorization URL for an OAuth connection
// code and redirect target.
func (c *Client) AuthorizationURL(provider, redirectURL string) (string, error) {
	params := url.Values{
		"client_id":     {c.config.ClientID},
		"provider":      {provider},
		"redirect_uri":  {redirectURL},
		"response_type": {"code"},
	}
	return c.config.BaseURL + "/user_management/authorize?" + params.Encode(), nil
}

// LogoutURL mints the hosted logout URL for a provider session.
func (c *Client) LogoutURL(sessionID, returnTo string) (string, error) {
	if sessionID == "" {
		return "", errSession("session id is required for logout", nil)
	}
	params := url.Values{
		"session_id": {sessionID},
	}
	if returnTo != "" {
		params.Set("return_to", returnTo)
	}
	return c.config.BaseURL + "/user_management/sessions/logout?" + params.Encode(), nil
}

// DeleteUser removes a provider identity.
func (c *Client) DeleteUser(ctx context.Context, externalID string) error {
	return c.do(ctx, http.MethodDelete, "/user_management/users/"+url.PathEscape(externalID), nil, nil)
}

func (c *Client) authenticate(ctx context.Context, body map[string]any) (*stackauth.ProviderAuth, error) {
	body["client_id"] = c.config.ClientID
	body["client_secret"] = c.config.APIKey
	body["session"] = map[string]any{
		"seal_session":    true,
		"cookie_password": c.config.CookiePassword,
	}

	var out authenticateResponse
	if err := c.do(ctx, http.MethodPost, "/user_management/authenticate", body, &out); err != nil {
		return nil, err
	}

	return &stackauth.ProviderAuth{
		Identity: stackauth.ExternalIdentity{
			ID:        out.User.ID,
			Email:     out.User.Email,
			FirstName: out.User.FirstName,
			LastName:  out.User.LastName,
		},
		AccessToken:   out.AccessToken,
		SealedSession: out.SealedSession,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errSession("unable to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return errSession("unable to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errTransport(method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errTransport(method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(method, path, resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errSession("unable to decode provider response", err)
	}
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
