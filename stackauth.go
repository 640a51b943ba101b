package stackauth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// ProviderFactory builds the identity provider client once Init has resolved
// the project's provider credentials from the directory.
type ProviderFactory func(cfg WorkOSConfig) (IdentityProvider, error)

// Auth assembles the authentication stack for one project: directory client,
// identity provider, orchestrator, token delivery, and the method adapters.
// Call Init before building any flow.
type Auth struct {
	cfg             Config
	api             DirectoryAPI
	provider        IdentityProvider
	providerFactory ProviderFactory
	tokens          TokenService
	logger          Logger
	fail            ErrorHandler

	project  *Project
	policy   LinkPolicy
	linker   *AccountLinker
	delivery *TokenDelivery
	apiKey   *APIKeyDelivery
}

// Option configures an Auth during construction.
type Option func(*Auth)

// WithDirectory injects the account/membership directory client.
func WithDirectory(api DirectoryAPI) Option {
	return func(a *Auth) { a.api = api }
}

// WithProvider injects a fully constructed identity provider, bypassing the
// factory. Intended for tests and for deployments with static credentials.
func WithProvider(p IdentityProvider) Option {
	return func(a *Auth) { a.provider = p }
}

// WithProviderFactory injects the factory used to build the identity provider
// after Init resolved the project's provider credentials.
func WithProviderFactory(f ProviderFactory) Option {
	return func(a *Auth) { a.providerFactory = f }
}

// WithTokenService overrides the default HS256 token service.
func WithTokenService(ts TokenService) Option {
	return func(a *Auth) { a.tokens = ts }
}

// WithLogger sets the logger used across the stack.
func WithLogger(l Logger) Option {
	return func(a *Auth) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithErrorHandler overrides how failed adapter steps respond.
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *Auth) { a.fail = h }
}

// New validates the configuration and assembles the stack. The project and
// its provider credentials are resolved later by Init.
func New(cfg Config, opts ...Option) (*Auth, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid auth configuration").
			WithCode(errors.CodeBadRequest)
	}

	a := &Auth{
		cfg:    cfg,
		logger: defLogger{},
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.api == nil {
		return nil, errors.New("a directory API is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}
	if a.provider == nil && a.providerFactory == nil {
		return nil, errors.New("an identity provider or a provider factory is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	if a.tokens == nil && cfg.Delivery.JWT.Enabled {
		a.tokens = NewTokenService([]byte(cfg.Delivery.JWT.Secret), cfg.Delivery.JWT.ExpiresIn, a.logger)
	}
	a.delivery = NewTokenDelivery(cfg.Delivery.JWT, a.tokens)
	a.apiKey = NewAPIKeyDelivery(cfg.Delivery.APIKey)

	return a, nil
}

// Init resolves the project record by name, merges its RBAC policy and
// allow-lists with the static configuration, loads the linked provider
// credentials for the configured environment, and builds the identity
// provider when a factory was given.
func (a *Auth) Init(ctx context.Context) error {
	projects, err := a.api.Projects().GetAll(ctx, 1, 1, ProjectFilter{Name: a.cfg.ProjectName})
	if err != nil {
		return UpstreamError(err, "failed to fetch project configuration")
	}
	if len(projects) == 0 {
		return errors.New("project not found: "+a.cfg.ProjectName, errors.CategoryNotFound).
			WithCode(errors.CodeNotFound)
	}
	a.project = projects[0]

	workos := a.cfg.WorkOS

	// Directory values win; static configuration fills the gaps.
	if len(a.project.RedirectURLs) == 0 {
		a.project.RedirectURLs = workos.RedirectURLs
	}
	if len(a.project.LogoutURLs) == 0 {
		a.project.LogoutURLs = workos.LogoutURLs
	}

	rbac := a.project.RBAC
	if !rbac.Enabled && workos.RBAC.Enabled {
		rbac = workos.RBAC
	}

	signup := workos.SignupEnabled
	if a.project.ProviderConfigID != "" {
		pc, err := a.api.ProviderConfigs().Get(ctx, a.project.ProviderConfigID)
		if err != nil {
			return UpstreamError(err, "failed to fetch provider configuration")
		}
		env := string(workos.Env)
		if workos.ClientID == "" {
			workos.ClientID = pc.ClientIDs[env]
		}
		if workos.ClientSecret == "" {
			workos.ClientSecret = pc.ClientSecrets[env]
		}
		signup = pc.SignupEnabled
	}

	if a.provider == nil {
		provider, err := a.providerFactory(workos)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to build identity provider").
				WithCode(errors.CodeInternal)
		}
		a.provider = provider
	}

	a.cfg.WorkOS = workos
	a.policy = LinkPolicy{SignupEnabled: signup, RBAC: rbac}
	a.linker = NewAccountLinker(a.api, a.provider, a.logger)

	a.logger.Info("auth initialized for project %s (signup=%t rbac=%t)", a.project.Name, signup, rbac.Enabled)
	return nil
}

func (a *Auth) deps() flowDeps {
	return flowDeps{
		project:  a.project,
		policy:   a.policy,
		provider: a.provider,
		linker:   a.linker,
		delivery: a.delivery,
		logger:   a.logger,
		fail:     a.fail,
	}
}

// Password returns the email/password adapter.
func (a *Auth) Password() *PasswordFlow {
	return &PasswordFlow{a.deps()}
}

// OAuth returns the authorization-code adapter.
func (a *Auth) OAuth() *OAuthFlow {
	return &OAuthFlow{a.deps()}
}

// MagicLink returns the one-time-code adapter.
func (a *Auth) MagicLink() *MagicLinkFlow {
	return &MagicLinkFlow{a.deps()}
}

// Validator returns the session validator.
func (a *Auth) Validator() *SessionValidator {
	return &SessionValidator{flowDeps: a.deps(), api: a.api}
}

// APIKey returns the static api-key delivery.
func (a *Auth) APIKey() *APIKeyDelivery {
	return a.apiKey
}

// Tokens returns the token service in use.
func (a *Auth) Tokens() TokenService {
	return a.tokens
}

// Delivery returns the token delivery in use.
func (a *Auth) Delivery() *TokenDelivery {
	return a.delivery
}

// Project returns the project resolved by Init.
func (a *Auth) Project() *Project {
	return a.project
}

// Policy returns the effective signup/RBAC policy resolved by Init.
func (a *Auth) Policy() LinkPolicy {
	return a.policy
}

// Linker returns the account-linking orchestrator built by Init.
func (a *Auth) Linker() *AccountLinker {
	return a.linker
}
