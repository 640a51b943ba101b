package stackauth

import "context"

// AccountLinker is the shared signup-or-signin orchestrator invoked by every
// verification method. It is callable only after the identity provider has
// already verified the caller.
type AccountLinker struct {
	api      DirectoryAPI
	provider IdentityProvider
	logger   Logger
}

// NewAccountLinker builds the orchestrator over its two collaborators.
func NewAccountLinker(api DirectoryAPI, provider IdentityProvider, logger Logger) *AccountLinker {
	if logger == nil {
		logger = defLogger{}
	}
	return &AccountLinker{api: api, provider: provider, logger: logger}
}

// LinkPolicy is the project policy in force during one authentication
// attempt. Immutable for the duration of the attempt.
type LinkPolicy struct {
	SignupEnabled bool
	RBAC          RBACConfig
}

// LinkRequest carries a verified identity into the orchestrator.
type LinkRequest struct {
	Project   *Project
	Policy    LinkPolicy
	Identity  ExternalIdentity
	SessionID string
	// RequestedRole is mandatory when RBAC and signup are both enabled.
	RequestedRole string
	// FirstName and LastName override the identity's names when the
	// verification payload supplied them.
	FirstName string
	LastName  string
}

// LinkResult is the orchestrator outcome handed back for token issuance.
type LinkResult struct {
	User       *User
	Membership *Membership
	SessionID  string
	IsNewUser  bool
}

// Link runs the shared signup-or-signin algorithm: look the identity's email
// up in the directory, provision a local user and membership when absent
// (subject to the signup gate), or append the provider session to the
// existing membership. The external identity is deleted at the provider only
// when the email lookup fails or when signup is disallowed for a brand-new
// email; in both cases the identity was created by this very attempt.
func (l *AccountLinker) Link(ctx context.Context, req LinkRequest) (*LinkResult, error) {
	if err := RequireRole(req.Policy.RBAC, req.Policy.SignupEnabled, req.RequestedRole); err != nil {
		return nil, err
	}
	role, err := ResolveRole(req.Policy.RBAC, req.RequestedRole)
	if err != nil {
		return nil, err
	}

	users, err := l.api.Users().GetAll(ctx, 1, 1, UserFilter{Email: req.Identity.Email})
	if err != nil {
		l.compensate(ctx, req.Identity.ID)
		return nil, UpstreamError(err, "failed to fetch user data")
	}

	if len(users) == 0 {
		if !req.Policy.SignupEnabled {
			l.compensate(ctx, req.Identity.ID)
			return nil, ErrSignupDisabled
		}
		return l.provision(ctx, req, nil, role)
	}

	user := users[0]

	memberships, err := l.api.Memberships().GetAll(ctx, 1, 1, MembershipFilter{
		UserID:    user.ID,
		ProjectID: req.Project.ID,
	})
	if err != nil {
		// The identity predates this attempt, it must not be deleted.
		return nil, UpstreamError(err, "failed to fetch user project membership")
	}

	if len(memberships) == 0 {
		// Signup into an additional project.
		if !req.Policy.SignupEnabled {
			return nil, ErrSignupDisabled
		}
		return l.provision(ctx, req, user, role)
	}

	return l.signin(ctx, req, user, memberships[0])
}

// Signup is the password-signup branch: the provider account is known new, so
// the email lookup is skipped. The RBAC and signup gates are the caller's
// responsibility and are enforced again here.
func (l *AccountLinker) Signup(ctx context.Context, req LinkRequest) (*LinkResult, error) {
	if !req.Policy.SignupEnabled {
		return nil, ErrSignupDisabled
	}
	if err := RequireRole(req.Policy.RBAC, req.Policy.SignupEnabled, req.RequestedRole); err != nil {
		return nil, err
	}
	role, err := ResolveRole(req.Policy.RBAC, req.RequestedRole)
	if err != nil {
		return nil, err
	}
	return l.provision(ctx, req, nil, role)
}

// Signin is the password-signin branch. A missing local user deletes the
// just-authenticated provider identity; a missing membership does not. That
// asymmetry is observed behavior, kept as-is.
func (l *AccountLinker) Signin(ctx context.Context, req LinkRequest) (*LinkResult, error) {
	users, err := l.api.Users().GetAll(ctx, 1, 1, UserFilter{Email: req.Identity.Email})
	if err != nil || len(users) == 0 {
		l.compensate(ctx, req.Identity.ID)
		return nil, ErrUserNotFound
	}
	user := users[0]

	memberships, err := l.api.Memberships().GetAll(ctx, 1, 1, MembershipFilter{
		UserID:    user.ID,
		ProjectID: req.Project.ID,
	})
	if err != nil || len(memberships) == 0 {
		return nil, ErrMembershipNotFound
	}

	return l.signin(ctx, req, user, memberships[0])
}

func (l *AccountLinker) provision(ctx context.Context, req LinkRequest, user *User, role Role) (*LinkResult, error) {
	isNewUser := user == nil

	if isNewUser {
		created, err := l.api.Users().Create(ctx, &User{
			Email:     req.Identity.Email,
			FirstName: pick(req.FirstName, req.Identity.FirstName),
			LastName:  pick(req.LastName, req.Identity.LastName),
		})
		if err != nil {
			return nil, UpstreamError(err, "failed to create user")
		}
		user = created
	}

	membership, err := l.api.Memberships().Create(ctx, &Membership{
		UserID:             user.ID,
		ProjectID:          req.Project.ID,
		ExternalIdentityID: req.Identity.ID,
		SessionIDs:         []string{req.SessionID},
		Role:               role,
		IsActive:           true,
	})
	if err != nil {
		return nil, UpstreamError(err, "failed to create user project membership")
	}

	return &LinkResult{
		User:       user,
		Membership: membership,
		SessionID:  req.SessionID,
		IsNewUser:  isNewUser,
	}, nil
}

// signin appends the provider session id to the membership history. The role
// on file is kept as-is; a requested role on sign-in is not honored.
func (l *AccountLinker) signin(ctx context.Context, req LinkRequest, user *User, membership *Membership) (*LinkResult, error) {
	membership.SessionIDs = membership.AppendSession(req.SessionID)

	updated, err := l.api.Memberships().Update(ctx, membership)
	if err != nil {
		return nil, UpstreamError(err, "failed to update user project membership")
	}

	return &LinkResult{
		User:       user,
		Membership: updated,
		SessionID:  req.SessionID,
	}, nil
}

// compensate deletes an external identity created by the current attempt.
// Best effort: a failed delete leaves an orphaned provider identity behind,
// which is reported but not retried.
func (l *AccountLinker) compensate(ctx context.Context, externalID string) {
	if externalID == "" {
		return
	}
	if err := l.provider.DeleteUser(ctx, externalID); err != nil {
		l.logger.Warn("compensating identity delete failed for %s: %v", externalID, err)
	}
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
