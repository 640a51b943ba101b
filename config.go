package stackauth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Environment selects which provider credential set a deployment uses.
type Environment string

const (
	EnvStaging    Environment = "staging"
	EnvProduction Environment = "production"
)

// Delivery channels for the signed session token.
const (
	SendViaCookie = "cookie"
	SendViaHeader = "header"
)

// TokenCookieName is the cookie carrying the delivered token.
const TokenCookieName = "auth_token"

// DefaultAPIKeyHeader is the header checked by the api-key delivery.
const DefaultAPIKeyHeader = "x-api-key"

// Config holds the recognized options for an authentication stack. WorkOS
// credential fields are usually left empty and filled in by Init from the
// project's ProviderConfig record.
type Config struct {
	ProjectName string         `json:"project_name"`
	APIKey      string         `json:"api_key"`
	WorkOS      WorkOSConfig   `json:"workos"`
	Delivery    DeliveryConfig `json:"delivery"`
}

// WorkOSConfig scopes provider behavior for one project.
type WorkOSConfig struct {
	Env           Environment `json:"env"`
	ClientID      string      `json:"client_id,omitempty"`
	ClientSecret  string      `json:"client_secret,omitempty"`
	SignupEnabled bool        `json:"signup_enabled"`
	RBAC          RBACConfig  `json:"rbac"`
	RedirectURLs  []string    `json:"redirect_urls,omitempty"`
	LogoutURLs    []string    `json:"logout_urls,omitempty"`
}

// DeliveryConfig selects how session artifacts reach the caller.
type DeliveryConfig struct {
	JWT    JWTDeliveryConfig    `json:"jwt"`
	APIKey APIKeyDeliveryConfig `json:"api_key"`
}

// JWTDeliveryConfig configures the signed token delivery.
type JWTDeliveryConfig struct {
	Enabled bool `json:"enabled"`
	// ExpiresIn is the token TTL in seconds.
	ExpiresIn int      `json:"expires_in"`
	Secret    string   `json:"secret"`
	SendVia   []string `json:"send_via"`
}

// APIKeyDeliveryConfig configures the static api-key delivery.
type APIKeyDeliveryConfig struct {
	Enabled    bool   `json:"enabled"`
	HeaderName string `json:"header_name,omitempty"`
	Value      string `json:"value,omitempty"`
}

// Validate runs validation rules over the full config.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ProjectName, validation.Required),
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.WorkOS),
		validation.Field(&c.Delivery),
	)
}

// Validate checks the provider environment value.
func (c WorkOSConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.Env,
			validation.Required,
			validation.In(EnvStaging, EnvProduction),
		),
	)
}

// Validate checks the delivery configuration.
func (c DeliveryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.JWT),
		validation.Field(&c.APIKey),
	)
}

// Validate enforces that an enabled JWT delivery has a secret, a TTL, and
// known channels.
func (c JWTDeliveryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Secret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.ExpiresIn, validation.Required, validation.Min(1)),
		validation.Field(&c.SendVia, validation.Required, validation.Each(validation.In(SendViaCookie, SendViaHeader))),
	)
}

// Validate enforces that an enabled api-key delivery carries a value.
func (c APIKeyDeliveryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Value, validation.Required),
		validation.Field(&c.HeaderName, is.ASCII),
	)
}

// Header returns the configured api-key header name or the default.
func (c APIKeyDeliveryConfig) Header() string {
	if c.HeaderName != "" {
		return c.HeaderName
	}
	return DefaultAPIKeyHeader
}

// SendsVia reports whether channel is one of the configured delivery
// channels.
func (c JWTDeliveryConfig) SendsVia(channel string) bool {
	return containsString(c.SendVia, channel)
}
