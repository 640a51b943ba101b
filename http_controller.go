package stackauth

import (
	"net/http"

	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController mounts the method adapters as routes. Each route composes an
// adapter middleware with a small terminal handler that reads the locals left
// by the step.
type HTTPController struct {
	auth   *Auth
	config HTTPConfig
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// RedirectOAuthPrompt responds to the prompt route with a 307 to the
	// authorization URL instead of a JSON body.
	RedirectOAuthPrompt bool

	// RedirectLogout responds to the logout route with a 307 to the provider
	// logout URL instead of a JSON body.
	RedirectLogout bool
}

// NewHTTPController creates a controller over an initialized Auth.
func NewHTTPController(auth *Auth, cfg HTTPConfig) *HTTPController {
	return &HTTPController{auth: auth, config: cfg}
}

// RegisterRoutes mounts the auth routes on the group.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	password := c.auth.Password()
	oauth := c.auth.OAuth()
	magic := c.auth.MagicLink()
	validator := c.auth.Validator()

	group.Post("/signup", c.RespondAuth, password.Signup())
	group.Post("/signin", c.RespondAuth, password.Signin())

	group.Post("/magic/generate", c.RespondMagicAuth, magic.Generate())
	group.Post("/magic/verify", c.RespondAuth, magic.Verify())

	group.Get("/session", c.RespondSession, validator.Validate())
	group.Get("/logout", c.RespondLogout, validator.Validate(), validator.Logout())

	group.Get("/:provider/callback", c.RespondAuth, oauth.Callback())
	group.Get("/:provider", c.RespondAuthURL, oauth.Prompt())
}

// RespondAuth responds with the auth state left by a verification step.
func (c *HTTPController) RespondAuth(ctx router.Context) error {
	state, ok := AuthStateFromRouter(ctx)
	if !ok {
		return DefaultErrorHandler(ctx, ErrUnauthorized)
	}
	return ctx.JSON(router.StatusOK, state)
}

// RespondSession responds with the auth state left by Validate.
func (c *HTTPController) RespondSession(ctx router.Context) error {
	state, ok := AuthStateFromRouter(ctx)
	if !ok {
		return DefaultErrorHandler(ctx, ErrUnauthorized)
	}
	return ctx.JSON(router.StatusOK, state)
}

// RespondAuthURL responds with the authorization URL left by Prompt, as a
// redirect or a JSON body per the configuration.
func (c *HTTPController) RespondAuthURL(ctx router.Context) error {
	authURL, _ := ctx.Locals(LocalsAuthURL).(string)
	if authURL == "" {
		return DefaultErrorHandler(ctx, ErrProviderNotSupported)
	}
	if c.config.RedirectOAuthPrompt {
		return ctx.Redirect(authURL, http.StatusTemporaryRedirect)
	}
	return ctx.JSON(router.StatusOK, map[string]string{"auth_url": authURL})
}

// RespondMagicAuth responds with the magic auth record left by Generate.
func (c *HTTPController) RespondMagicAuth(ctx router.Context) error {
	magic, ok := ctx.Locals(LocalsMagicAuth).(*MagicAuth)
	if !ok || magic == nil {
		return DefaultErrorHandler(ctx, ErrUnauthorized)
	}
	return ctx.JSON(router.StatusOK, magic)
}

// RespondLogout responds with the provider logout URL left by Logout.
func (c *HTTPController) RespondLogout(ctx router.Context) error {
	logoutURL, _ := ctx.Locals(LocalsLogoutURL).(string)
	if logoutURL == "" {
		return DefaultErrorHandler(ctx, ErrUnauthorized)
	}
	if c.config.RedirectLogout {
		return ctx.Redirect(logoutURL, http.StatusTemporaryRedirect)
	}
	return ctx.JSON(router.StatusOK, map[string]string{"logout_url": logoutURL})
}
