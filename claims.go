package stackauth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionClaims is the delivered token payload: the membership the caller
// authenticated into and the provider session minted for the attempt. Wire
// names match the directory API's historical token shape.
type SessionClaims struct {
	jwt.RegisteredClaims
	MembershipID string `json:"up_id,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

// Valid claims carry both ids.
func (c *SessionClaims) Complete() bool {
	return c != nil && c.MembershipID != "" && c.SessionID != ""
}

// SessionIDFromAccessToken extracts the provider session id from the `sid`
// claim of a provider-issued access token. The token is decoded without
// signature verification since the provider already validated it as part of
// the code exchange.
func SessionIDFromAccessToken(raw string) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return "", errors.Wrap(err, errors.CategoryAuth, "unable to decode provider access token").
			WithCode(errors.CodeUnauthorized)
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", errors.New("provider access token has no session id", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}
	return sid, nil
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
