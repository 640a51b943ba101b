package dirstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/embos/go-stack-auth"
)

// Store-local Bun models. Records are keyed by uuid; the public directory
// types carry string ids, converted at this boundary.

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid"`
	Email     string    `bun:"email,notnull,unique"`
	FirstName string    `bun:"first_name"`
	LastName  string    `bun:"last_name"`
	Phone     string    `bun:"phone_number"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

func (m *userModel) toUser() *stackauth.User {
	return &stackauth.User{
		ID:        m.ID.String(),
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Phone:     m.Phone,
		CreatedAt: timePtr(m.CreatedAt),
		UpdatedAt: timePtr(m.UpdatedAt),
	}
}

type membershipModel struct {
	bun.BaseModel `bun:"table:user_projects,alias:mbr"`

	ID                 uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	UserID             uuid.UUID      `bun:"user_id,notnull,type:uuid"`
	ProjectID          uuid.UUID      `bun:"project_id,notnull,type:uuid"`
	ExternalIdentityID string         `bun:"external_identity_id"`
	SessionIDs         []string       `bun:"session_ids,type:jsonb"`
	Role               stackauth.Role `bun:"role,type:jsonb"`
	IsActive           bool           `bun:"is_active"`
	CreatedAt          time.Time      `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt          time.Time      `bun:"updated_at,nullzero,default:current_timestamp"`
}

func (m *membershipModel) toMembership() *stackauth.Membership {
	return &stackauth.Membership{
		ID:                 m.ID.String(),
		UserID:             m.UserID.String(),
		ProjectID:          m.ProjectID.String(),
		ExternalIdentityID: m.ExternalIdentityID,
		SessionIDs:         m.SessionIDs,
		Role:               m.Role,
		IsActive:           m.IsActive,
		CreatedAt:          timePtr(m.CreatedAt),
		UpdatedAt:          timePtr(m.UpdatedAt),
	}
}

type projectModel struct {
	bun.BaseModel `bun:"table:projects,alias:prj"`

	ID               uuid.UUID            `bun:"id,pk,nullzero,type:uuid"`
	Name             string               `bun:"name,notnull,unique"`
	RedirectURLs     []string             `bun:"redirect_urls,type:jsonb"`
	LogoutURLs       []string             `bun:"logout_urls,type:jsonb"`
	RBAC             stackauth.RBACConfig `bun:"rbac,type:jsonb"`
	ProviderConfigID uuid.UUID            `bun:"provider_config_id,nullzero,type:uuid"`
	CreatedAt        time.Time            `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt        time.Time            `bun:"updated_at,nullzero,default:current_timestamp"`
}

func (m *projectModel) toProject() *stackauth.Project {
	providerConfigID := ""
	if m.ProviderConfigID != uuid.Nil {
		providerConfigID = m.ProviderConfigID.String()
	}
	return &stackauth.Project{
		ID:               m.ID.String(),
		Name:             m.Name,
		RedirectURLs:     m.RedirectURLs,
		LogoutURLs:       m.LogoutURLs,
		RBAC:             m.RBAC,
		ProviderConfigID: providerConfigID,
		CreatedAt:        timePtr(m.CreatedAt),
		UpdatedAt:        timePtr(m.UpdatedAt),
	}
}

type providerConfigModel struct {
	bun.BaseModel `bun:"table:workos_configs,alias:pvc"`

	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid"`
	ClientIDs     map[string]string `bun:"client_ids,type:jsonb"`
	ClientSecrets map[string]string `bun:"client_secrets,type:jsonb"`
	SignupEnabled bool              `bun:"signup_enabled"`
	IsDefault     bool              `bun:"is_default"`
	CreatedAt     time.Time         `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time         `bun:"updated_at,nullzero,default:current_timestamp"`
}

func (m *providerConfigModel) toProviderConfig() *stackauth.ProviderConfig {
	return &stackauth.ProviderConfig{
		ID:            m.ID.String(),
		ClientIDs:     m.ClientIDs,
		ClientSecrets: m.ClientSecrets,
		SignupEnabled: m.SignupEnabled,
		IsDefault:     m.IsDefault,
		CreatedAt:     timePtr(m.CreatedAt),
		UpdatedAt:     timePtr(m.UpdatedAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
