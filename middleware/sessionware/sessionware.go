// Package sessionware guards routes with a delivered session token. It
// verifies the token either against the stack's token service or against a
// provider JWK Set, optionally re-checks the membership on file, and leaves
// the auth state in locals.
package sessionware

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"

	"github.com/embos/go-stack-auth"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization + ",cookie:" + stackauth.TokenCookieName

	ErrTokenMissingOrMalformed = errors.New("missing or malformed session token")
)

// MembershipLookup resolves a membership id to the record on file. Wire the
// directory's Memberships().Get here to reject revoked or inactive
// memberships.
type MembershipLookup func(ctx context.Context, membershipID string) (*stackauth.Membership, error)

// Config configures the middleware.
type Config struct {
	// Filter skips the middleware when it returns true.
	Filter func(router.Context) bool

	SuccessHandler router.HandlerFunc
	ErrorHandler   func(router.Context, error) error

	// Tokens verifies tokens signed by this stack. Either Tokens or
	// JWKSetURLs must be set.
	Tokens stackauth.TokenService

	// JWKSetURLs verifies provider-issued tokens against remote JWK Sets
	// instead of the local token service.
	JWKSetURLs []string

	// TokenLookup is a comma-separated list of token sources, e.g.
	// "header:Authorization,cookie:auth_token".
	TokenLookup string
	AuthScheme  string

	// ContextKey is the locals key the auth state is stored under.
	ContextKey string

	// Membership re-checks the membership on file after signature
	// verification. Optional but recommended; without it a revoked session
	// passes until token expiry.
	Membership MembershipLookup

	// RequiredPermission rejects validated sessions whose role lacks the
	// permission.
	RequiredPermission string

	// ContextEnricher propagates the auth state to the standard context.
	ContextEnricher func(context.Context, *stackauth.AuthState) context.Context

	keyFunc jwt.Keyfunc
}

// New builds the middleware.
func New(config ...Config) router.MiddlewareFunc {
	cfg := withDefaults(config...)
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			raw, err := extractToken(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.verify(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			state := &stackauth.AuthState{
				Token:        raw,
				SessionID:    claims.SessionID,
				MembershipID: claims.MembershipID,
			}

			if cfg.Membership != nil {
				membership, err := cfg.Membership(ctx.Context(), claims.MembershipID)
				if err != nil || membership == nil || !membership.IsActive {
					return cfg.ErrorHandler(ctx, stackauth.ErrUnauthorized)
				}
				if !contains(membership.SessionIDs, claims.SessionID) {
					return cfg.ErrorHandler(ctx, stackauth.ErrUnauthorized)
				}
				state.Role = membership.Role
			}

			if cfg.RequiredPermission != "" && !state.HasPermission(cfg.RequiredPermission) {
				return cfg.ErrorHandler(ctx, stackauth.ErrUnauthorized)
			}

			ctx.Locals(cfg.ContextKey, state)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), state))
			}

			if cfg.SuccessHandler != nil {
				return cfg.SuccessHandler(ctx)
			}
			return next(ctx)
		}
	}
}

func withDefaults(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err == ErrTokenMissingOrMalformed {
				return c.Status(router.StatusBadRequest).SendString(ErrTokenMissingOrMalformed.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("invalid or expired session")
		}
	}

	if cfg.Tokens == nil && len(cfg.JWKSetURLs) == 0 {
		panic("AUTH: session middleware configuration: one of Tokens or JWKSetURLs is required")
	}

	if cfg.Tokens == nil {
		kf, err := jwksKeyfunc(cfg.JWKSetURLs)
		if err != nil {
			panic("AUTH: failed to create keyfunc from JWK Set URL: " + err.Error())
		}
		cfg.keyFunc = kf
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = stackauth.LocalsAuth
	}
	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

// verify checks raw against the token service or a remote JWK Set.
func (cfg Config) verify(raw string) (*stackauth.SessionClaims, error) {
	if cfg.Tokens != nil {
		return cfg.Tokens.Verify(raw)
	}

	claims := &stackauth.SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, cfg.keyFunc)
	if err != nil || !token.Valid {
		return nil, stackauth.ErrUnauthorized
	}
	if !claims.Complete() {
		return nil, stackauth.ErrUnauthorized
	}
	return claims, nil
}

func jwksKeyfunc(urls []string) (jwt.Keyfunc, error) {
	opts := keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWK Set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	m := make(map[string]keyfunc.Options, len(urls))
	for _, u := range urls {
		m[u] = opts
	}

	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, err
	}
	return multi.Keyfunc, nil
}

// TokenExtractor pulls a raw token from a request.
type TokenExtractor func(router.Context) (string, error)

func extractToken(ctx router.Context, cfg Config) (string, error) {
	var raw string
	var err error
	for _, extractor := range extractors(cfg.TokenLookup, cfg.AuthScheme) {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			return raw, nil
		}
	}
	if err == nil {
		err = ErrTokenMissingOrMalformed
	}
	return "", err
}

// extractors parses a lookup string like
// "header:Authorization,cookie:auth_token,query:token".
func extractors(tokenLookup, authScheme string) []TokenExtractor {
	out := make([]TokenExtractor, 0)

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) < 2 {
			continue
		}
		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(strings.Join(parts[1:], ":"))

		switch source {
		case "header":
			out = append(out, fromHeader(name, authScheme))
		case "cookie":
			out = append(out, fromCookie(name))
		case "query":
			out = append(out, fromQuery(name))
		}
	}

	return out
}

func fromHeader(header, authScheme string) TokenExtractor {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissingOrMalformed
	}
}

func fromCookie(name string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func fromQuery(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
