package stackauth

import (
	"time"

	"github.com/uptrace/bun"
)

// Role binds a role name to its permission set.
type Role struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// RBACConfig is the per-project role policy. It is immutable input during an
// authentication attempt.
type RBACConfig struct {
	Enabled bool   `json:"enabled"`
	Roles   []Role `json:"roles,omitempty"`
}

// HasRole reports whether name matches one of the configured roles.
func (c RBACConfig) HasRole(name string) bool {
	_, ok := c.Find(name)
	return ok
}

// Find returns the configured role matching name.
func (c RBACConfig) Find(name string) (Role, bool) {
	for _, r := range c.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// ExternalIdentity is a verified identity owned by the identity provider. It
// is referenced, never owned, by this package.
type ExternalIdentity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// User is the local account record, created once per unique email on first
// successful signup across any method or project.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr" json:"-"`

	ID        string     `bun:"id,pk" json:"id,omitempty"`
	Email     string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName string     `bun:"first_name" json:"first_name,omitempty"`
	LastName  string     `bun:"last_name" json:"last_name,omitempty"`
	Phone     string     `bun:"phone_number" json:"phone_number,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Membership is the authorization unit binding a local user to a project, a
// role, and the history of provider sessions. SessionIDs is append-only; it is
// the authoritative session-membership linkage.
type Membership struct {
	bun.BaseModel `bun:"table:memberships,alias:mbr" json:"-"`

	ID                 string     `bun:"id,pk" json:"id,omitempty"`
	UserID             string     `bun:"user_id,notnull" json:"user_id,omitempty"`
	ProjectID          string     `bun:"project_id,notnull" json:"project_id,omitempty"`
	ExternalIdentityID string     `bun:"external_identity_id" json:"external_identity_id,omitempty"`
	SessionIDs         []string   `bun:"session_ids,type:jsonb" json:"session_ids,omitempty"`
	Role               Role       `bun:"role,type:jsonb" json:"role"`
	IsActive           bool       `bun:"is_active" json:"is_active"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AppendSession returns the membership session list with id appended. Prior
// entries are never removed.
func (m *Membership) AppendSession(id string) []string {
	out := make([]string, 0, len(m.SessionIDs)+1)
	out = append(out, m.SessionIDs...)
	return append(out, id)
}

// Project is the directory's project record. Allow-lists and the RBAC policy
// live here; provider credentials live in the linked ProviderConfig.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:prj" json:"-"`

	ID               string     `bun:"id,pk" json:"id,omitempty"`
	Name             string     `bun:"name,notnull,unique" json:"name,omitempty"`
	RedirectURLs     []string   `bun:"redirect_urls,type:jsonb" json:"redirect_urls,omitempty"`
	LogoutURLs       []string   `bun:"logout_urls,type:jsonb" json:"logout_urls,omitempty"`
	RBAC             RBACConfig `bun:"rbac,type:jsonb" json:"rbac"`
	ProviderConfigID string     `bun:"provider_config_id" json:"provider_config_id,omitempty"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AllowsRedirect reports whether url is in the project redirect allow-list.
func (p *Project) AllowsRedirect(url string) bool {
	return containsString(p.RedirectURLs, url)
}

// AllowsLogout reports whether url is in the project logout allow-list.
func (p *Project) AllowsLogout(url string) bool {
	return containsString(p.LogoutURLs, url)
}

// ProviderConfig holds per-environment identity provider credentials shared by
// one or more projects.
type ProviderConfig struct {
	bun.BaseModel `bun:"table:provider_configs,alias:pvc" json:"-"`

	ID            string            `bun:"id,pk" json:"id,omitempty"`
	ClientIDs     map[string]string `bun:"client_ids,type:jsonb" json:"client_ids,omitempty"`
	ClientSecrets map[string]string `bun:"client_secrets,type:jsonb" json:"client_secrets,omitempty"`
	SignupEnabled bool              `bun:"signup_enabled" json:"signup_enabled"`
	IsDefault     bool              `bun:"is_default" json:"is_default"`
	CreatedAt     *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
