package stackauth

// DefaultRoleName is the role applied whenever RBAC does not dictate one.
const DefaultRoleName = "user"

// DefaultRole returns the role used when RBAC is disabled, or when a sign-in
// re-entry path carries no requested role.
func DefaultRole() Role {
	return Role{Name: DefaultRoleName, Permissions: []string{}}
}

// RequireRole enforces the RBAC precondition for signup-capable flows: when
// the policy is enabled and signup is enabled, a requested role is mandatory
// and must match a configured role name.
func RequireRole(policy RBACConfig, signupEnabled bool, requested string) error {
	if !policy.Enabled || !signupEnabled {
		return nil
	}
	if requested == "" {
		return ErrRoleRequired
	}
	if !policy.HasRole(requested) {
		return ErrRoleNotAllowed
	}
	return nil
}

// ResolveRole returns the effective role for an authentication attempt. A
// disabled policy always yields the default role regardless of the request; an
// absent request yields the default role; anything else must match a
// configured role exactly.
func ResolveRole(policy RBACConfig, requested string) (Role, error) {
	if !policy.Enabled {
		return DefaultRole(), nil
	}
	if requested == "" {
		return DefaultRole(), nil
	}
	if role, ok := policy.Find(requested); ok {
		return role, nil
	}
	return Role{}, ErrRoleNotAllowed
}
