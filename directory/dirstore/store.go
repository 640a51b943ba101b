// Package dirstore is an embedded directory backed by Bun. It exists for
// single-process deployments and tests that have no directory service to talk
// to; it implements the same contract as the HTTP client.
package dirstore

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"

	"github.com/embos/go-stack-auth"
)

// Store implements stackauth.DirectoryAPI over a Bun database.
type Store struct {
	db     *bun.DB
	users  repository.Repository[*userModel]
	logger stackauth.Logger

	// PhoneRegion is the default region for phone normalization.
	phoneRegion string
}

var _ stackauth.DirectoryAPI = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l stackauth.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPhoneRegion sets the default region used to normalize phone numbers.
func WithPhoneRegion(region string) StoreOption {
	return func(s *Store) { s.phoneRegion = region }
}

// New creates a store over db.
func New(db *bun.DB, opts ...StoreOption) *Store {
	users := repository.NewRepository[*userModel](db, repository.ModelHandlers[*userModel]{
		NewRecord: func() *userModel { return &userModel{} },
		GetID: func(u *userModel) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *userModel, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	s := &Store{
		db:          db,
		users:       users,
		phoneRegion: "US",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTables creates the directory schema. Intended for sqlite-backed
// deployments and tests.
func (s *Store) CreateTables(ctx context.Context) error {
	models := []any{
		(*userModel)(nil),
		(*membershipModel)(nil),
		(*projectModel)(nil),
		(*providerConfigModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "unable to create directory tables").
				WithCode(errors.CodeInternal)
		}
	}
	return nil
}

// SeedProject inserts a project along with its provider config. An existing
// project with the same name is returned as is, without touching its config.
func (s *Store) SeedProject(ctx context.Context, project *stackauth.Project, pc *stackauth.ProviderConfig) (*stackauth.Project, error) {
	existing := new(projectModel)
	err := s.db.NewSelect().Model(existing).Where("name = ?", project.Name).Scan(ctx)
	if err == nil {
		return existing.toProject(), nil
	}
	if err != sql.ErrNoRows {
		return nil, storeError(err, "unable to seed project")
	}

	pcm := &providerConfigModel{
		ID:            uuid.New(),
		ClientIDs:     pc.ClientIDs,
		ClientSecrets: pc.ClientSecrets,
		SignupEnabled: pc.SignupEnabled,
		IsDefault:     pc.IsDefault,
	}
	if _, err := s.db.NewInsert().Model(pcm).Exec(ctx); err != nil {
		return nil, storeError(err, "unable to seed provider config")
	}

	pm := &projectModel{
		ID:               uuid.New(),
		Name:             project.Name,
		RedirectURLs:     project.RedirectURLs,
		LogoutURLs:       project.LogoutURLs,
		RBAC:             project.RBAC,
		ProviderConfigID: pcm.ID,
	}
	if _, err := s.db.NewInsert().Model(pm).Exec(ctx); err != nil {
		return nil, storeError(err, "unable to seed project")
	}
	return pm.toProject(), nil
}

// Users implements stackauth.DirectoryAPI.
func (s *Store) Users() stackauth.UserDirectory {
	return usersStore{s}
}

// Projects implements stackauth.DirectoryAPI.
func (s *Store) Projects() stackauth.ProjectDirectory {
	return projectsStore{s}
}

// Memberships implements stackauth.DirectoryAPI.
func (s *Store) Memberships() stackauth.MembershipDirectory {
	return membershipsStore{s}
}

// ProviderConfigs implements stackauth.DirectoryAPI.
func (s *Store) ProviderConfigs() stackauth.ProviderConfigDirectory {
	return providerConfigsStore{s}
}

func storeError(err error, msg string) error {
	if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
		return errors.New("directory record not found", errors.CategoryNotFound).
			WithCode(errors.CodeNotFound)
	}
	return errors.Wrap(err, errors.CategoryInternal, msg).WithCode(errors.CodeInternal)
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryBadInput, "invalid directory record id").
			WithCode(errors.CodeBadRequest)
	}
	return parsed, nil
}

func applyPage(q *bun.SelectQuery, page, limit int) *bun.SelectQuery {
	if limit > 0 {
		q = q.Limit(limit)
		if page > 1 {
			q = q.Offset((page - 1) * limit)
		}
	}
	return q
}

type usersStore struct{ s *Store }

func (u usersStore) Get(ctx context.Context, id string) (*stackauth.User, error) {
	model, err := u.s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "unable to fetch user")
	}
	return model.toUser(), nil
}

func (u usersStore) GetAll(ctx context.Context, page, limit int, filter stackauth.UserFilter) ([]*stackauth.User, error) {
	var models []userModel
	q := u.s.db.NewSelect().Model(&models)
	if filter.Email != "" {
		q = q.Where("email = ?", filter.Email)
	}
	if filter.Phone != "" {
		q = q.Where("phone_number = ?", u.s.normalizePhone(filter.Phone))
	}
	if err := applyPage(q, page, limit).Scan(ctx); err != nil {
		return nil, storeError(err, "unable to list users")
	}

	out := make([]*stackauth.User, len(models))
	for i := range models {
		out[i] = models[i].toUser()
	}
	return out, nil
}

func (u usersStore) Create(ctx context.Context, user *stackauth.User) (*stackauth.User, error) {
	// Deterministic id from the email keeps re-provisioning idempotent.
	id, err := hashid.NewUUID(user.Email)
	if err != nil {
		id = uuid.New()
	}

	model := &userModel{
		ID:        id,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     u.s.normalizePhone(user.Phone),
	}

	created, err := u.s.users.Create(ctx, model)
	if err != nil {
		return nil, storeError(err, "unable to create user")
	}
	return created.toUser(), nil
}

func (u usersStore) Update(ctx context.Context, user *stackauth.User) (*stackauth.User, error) {
	id, err := parseID(user.ID)
	if err != nil {
		return nil, err
	}

	model := &userModel{
		ID:        id,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     u.s.normalizePhone(user.Phone),
	}

	updated, err := u.s.users.Update(ctx, model)
	if err != nil {
		return nil, storeError(err, "unable to update user")
	}
	return updated.toUser(), nil
}

func (u usersStore) Delete(ctx context.Context, id string) error {
	parsed, err := parseID(id)
	if err != nil {
		return err
	}
	if _, err := u.s.db.NewDelete().Model((*userModel)(nil)).Where("id = ?", parsed).Exec(ctx); err != nil {
		return storeError(err, "unable to delete user")
	}
	return nil
}

// normalizePhone formats the number as E.164 when it parses; raw input is
// kept otherwise.
func (s *Store) normalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := phonenumbers.Parse(raw, s.phoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return raw
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

type projectsStore struct{ s *Store }

func (p projectsStore) Get(ctx context.Context, id string) (*stackauth.Project, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var model projectModel
	if err := p.s.db.NewSelect().Model(&model).Where("id = ?", parsed).Scan(ctx); err != nil {
		return nil, storeError(err, "unable to fetch project")
	}
	return model.toProject(), nil
}

func (p projectsStore) GetAll(ctx context.Context, page, limit int, filter stackauth.ProjectFilter) ([]*stackauth.Project, error) {
	var models []projectModel
	q := p.s.db.NewSelect().Model(&models)
	if filter.Name != "" {
		q = q.Where("name = ?", filter.Name)
	}
	if err := applyPage(q, page, limit).Scan(ctx); err != nil {
		return nil, storeError(err, "unable to list projects")
	}

	out := make([]*stackauth.Project, len(models))
	for i := range models {
		out[i] = models[i].toProject()
	}
	return out, nil
}

type membershipsStore struct{ s *Store }

func (m membershipsStore) Get(ctx context.Context, id string) (*stackauth.Membership, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var model membershipModel
	if err := m.s.db.NewSelect().Model(&model).Where("id = ?", parsed).Scan(ctx); err != nil {
		return nil, storeError(err, "unable to fetch membership")
	}
	return model.toMembership(), nil
}

func (m membershipsStore) GetAll(ctx context.Context, page, limit int, filter stackauth.MembershipFilter) ([]*stackauth.Membership, error) {
	var models []membershipModel
	q := m.s.db.NewSelect().Model(&models)
	if filter.UserID != "" {
		userID, err := parseID(filter.UserID)
		if err != nil {
			return nil, err
		}
		q = q.Where("user_id = ?", userID)
	}
	if filter.ProjectID != "" {
		projectID, err := parseID(filter.ProjectID)
		if err != nil {
			return nil, err
		}
		q = q.Where("project_id = ?", projectID)
	}
	if err := applyPage(q, page, limit).Scan(ctx); err != nil {
		return nil, storeError(err, "unable to list memberships")
	}

	out := make([]*stackauth.Membership, len(models))
	for i := range models {
		out[i] = models[i].toMembership()
	}
	return out, nil
}

func (m membershipsStore) Create(ctx context.Context, membership *stackauth.Membership) (*stackauth.Membership, error) {
	userID, err := parseID(membership.UserID)
	if err != nil {
		return nil, err
	}
	projectID, err := parseID(membership.ProjectID)
	if err != nil {
		return nil, err
	}

	model := &membershipModel{
		ID:                 uuid.New(),
		UserID:             userID,
		ProjectID:          projectID,
		ExternalIdentityID: membership.ExternalIdentityID,
		SessionIDs:         membership.SessionIDs,
		Role:               membership.Role,
		IsActive:           membership.IsActive,
	}
	if _, err := m.s.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return nil, storeError(err, "unable to create membership")
	}
	return model.toMembership(), nil
}

func (m membershipsStore) Update(ctx context.Context, membership *stackauth.Membership) (*stackauth.Membership, error) {
	id, err := parseID(membership.ID)
	if err != nil {
		return nil, err
	}

	model := &membershipModel{
		ID:         id,
		SessionIDs: membership.SessionIDs,
		Role:       membership.Role,
		IsActive:   membership.IsActive,
	}
	res, err := m.s.db.NewUpdate().
		Model(model).
		Column("session_ids", "role", "is_active").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, storeError(err, "unable to update membership")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, storeError(sql.ErrNoRows, "unable to update membership")
	}

	return m.Get(ctx, membership.ID)
}

func (m membershipsStore) Delete(ctx context.Context, id string) error {
	parsed, err := parseID(id)
	if err != nil {
		return err
	}
	if _, err := m.s.db.NewDelete().Model((*membershipModel)(nil)).Where("id = ?", parsed).Exec(ctx); err != nil {
		return storeError(err, "unable to delete membership")
	}
	return nil
}

type providerConfigsStore struct{ s *Store }

func (p providerConfigsStore) Get(ctx context.Context, id string) (*stackauth.ProviderConfig, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var model providerConfigModel
	if err := p.s.db.NewSelect().Model(&model).Where("id = ?", parsed).Scan(ctx); err != nil {
		return nil, storeError(err, "unable to fetch provider config")
	}
	return model.toProviderConfig(), nil
}
