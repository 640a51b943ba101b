package stackauth

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

// TokenDelivery attaches, extracts, and clears the delivered token on the
// configured channels. The token itself is stateless; revocation means "stop
// sending and accepting it".
type TokenDelivery struct {
	cfg     JWTDeliveryConfig
	service TokenService
}

// NewTokenDelivery wires a token service to its delivery configuration.
func NewTokenDelivery(cfg JWTDeliveryConfig, service TokenService) *TokenDelivery {
	return &TokenDelivery{cfg: cfg, service: service}
}

// Issue signs the claims and, when the cookie channel is enabled, attaches the
// token to the response. With the JWT channel disabled no token is minted and
// the empty string is returned.
func (d *TokenDelivery) Issue(ctx router.Context, claims *SessionClaims) (string, error) {
	if !d.cfg.Enabled || d.service == nil {
		return "", nil
	}

	token, err := d.service.Sign(claims)
	if err != nil {
		return "", err
	}

	if d.cfg.SendsVia(SendViaCookie) {
		ctx.Cookie(&router.Cookie{
			Name:     TokenCookieName,
			Value:    token,
			Expires:  time.Now().Add(time.Duration(d.cfg.ExpiresIn) * time.Second),
			HTTPOnly: true,
			Secure:   true,
			SameSite: "Strict",
		})
	}

	return token, nil
}

// Extract reads the raw token from the configured channels: header first,
// then cookie, first non-empty wins.
func (d *TokenDelivery) Extract(ctx router.Context) (string, error) {
	var raw string

	if d.cfg.SendsVia(SendViaHeader) {
		raw = tokenFromAuthHeader(ctx)
	}
	if raw == "" && d.cfg.SendsVia(SendViaCookie) {
		raw = ctx.Cookies(TokenCookieName)
	}

	if raw == "" {
		return "", ErrUnauthorized
	}
	return raw, nil
}

// Decode extracts and verifies the delivered token.
func (d *TokenDelivery) Decode(ctx router.Context) (*SessionClaims, error) {
	if d.service == nil {
		return nil, ErrUnauthorized
	}

	raw, err := d.Extract(ctx)
	if err != nil {
		return nil, err
	}

	claims, err := d.service.Verify(raw)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Clear expires the token cookie. There is no server-side blacklist: a
// captured still-valid token remains usable until natural expiry.
func (d *TokenDelivery) Clear(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func tokenFromAuthHeader(ctx router.Context) string {
	a := ctx.GetString(router.HeaderAuthorization, "")
	const scheme = "Bearer"
	if len(a) > len(scheme)+1 && strings.EqualFold(a[:len(scheme)], scheme) {
		return strings.TrimSpace(a[len(scheme):])
	}
	return ""
}

// APIKeyDelivery verifies a static api key on the configured header.
type APIKeyDelivery struct {
	cfg APIKeyDeliveryConfig
}

// NewAPIKeyDelivery builds an api-key delivery from its configuration.
func NewAPIKeyDelivery(cfg APIKeyDeliveryConfig) *APIKeyDelivery {
	return &APIKeyDelivery{cfg: cfg}
}

// Verify reports whether the request carries the configured api key.
func (d *APIKeyDelivery) Verify(ctx router.Context) bool {
	if !d.cfg.Enabled || d.cfg.Value == "" {
		return false
	}
	got := ctx.GetString(d.cfg.Header(), "")
	return subtle.ConstantTimeCompare([]byte(got), []byte(d.cfg.Value)) == 1
}

// Require is a middleware step that rejects requests missing the configured
// api key. A disabled api-key delivery passes every request through.
func (d *APIKeyDelivery) Require() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if !d.cfg.Enabled {
				return next(ctx)
			}
			if !d.Verify(ctx) {
				return DefaultErrorHandler(ctx, ErrUnauthorized)
			}
			return next(ctx)
		}
	}
}
