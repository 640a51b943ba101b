package stackauth_test

import (
	"context"
	"fmt"

	stackauth "github.com/embos/go-stack-auth"
)

// stubDirectory is an in-memory DirectoryAPI with per-collection error
// injection.
type stubDirectory struct {
	users           []*stackauth.User
	memberships     []*stackauth.Membership
	projects        []*stackauth.Project
	providerConfigs map[string]*stackauth.ProviderConfig

	usersErr       error
	membershipsErr error
	projectsErr    error

	createdUsers       []*stackauth.User
	createdMemberships []*stackauth.Membership

	seq int
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{providerConfigs: map[string]*stackauth.ProviderConfig{}}
}

func (d *stubDirectory) nextID(prefix string) string {
	d.seq++
	return fmt.Sprintf("%s-%d", prefix, d.seq)
}

func (d *stubDirectory) addUser(email string) *stackauth.User {
	user := &stackauth.User{ID: d.nextID("usr"), Email: email}
	d.users = append(d.users, user)
	return user
}

func (d *stubDirectory) addMembership(userID, projectID string, role stackauth.Role, sessionIDs ...string) *stackauth.Membership {
	m := &stackauth.Membership{
		ID:         d.nextID("mbr"),
		UserID:     userID,
		ProjectID:  projectID,
		SessionIDs: sessionIDs,
		Role:       role,
		IsActive:   true,
	}
	d.memberships = append(d.memberships, m)
	return m
}

func (d *stubDirectory) addProject(p *stackauth.Project) *stackauth.Project {
	if p.ID == "" {
		p.ID = d.nextID("prj")
	}
	d.projects = append(d.projects, p)
	return p
}

func (d *stubDirectory) Users() stackauth.UserDirectory             { return stubUsers{d} }
func (d *stubDirectory) Projects() stackauth.ProjectDirectory       { return stubProjects{d} }
func (d *stubDirectory) Memberships() stackauth.MembershipDirectory { return stubMemberships{d} }
func (d *stubDirectory) ProviderConfigs() stackauth.ProviderConfigDirectory {
	return stubProviderConfigs{d}
}

type stubUsers struct{ d *stubDirectory }

func (s stubUsers) Get(_ context.Context, id string) (*stackauth.User, error) {
	if s.d.usersErr != nil {
		return nil, s.d.usersErr
	}
	for _, u := range s.d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, stackauth.ErrUserNotFound
}

func (s stubUsers) GetAll(_ context.Context, _, _ int, filter stackauth.UserFilter) ([]*stackauth.User, error) {
	if s.d.usersErr != nil {
		return nil, s.d.usersErr
	}
	var out []*stackauth.User
	for _, u := range s.d.users {
		if filter.Email != "" && u.Email != filter.Email {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s stubUsers) Create(_ context.Context, user *stackauth.User) (*stackauth.User, error) {
	created := *user
	created.ID = s.d.nextID("usr")
	s.d.users = append(s.d.users, &created)
	s.d.createdUsers = append(s.d.createdUsers, &created)
	return &created, nil
}

func (s stubUsers) Update(_ context.Context, user *stackauth.User) (*stackauth.User, error) {
	return user, nil
}

func (s stubUsers) Delete(_ context.Context, _ string) error { return nil }

type stubProjects struct{ d *stubDirectory }

func (s stubProjects) Get(_ context.Context, id string) (*stackauth.Project, error) {
	if s.d.projectsErr != nil {
		return nil, s.d.projectsErr
	}
	for _, p := range s.d.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, stackauth.ErrUserNotFound
}

func (s stubProjects) GetAll(_ context.Context, _, _ int, filter stackauth.ProjectFilter) ([]*stackauth.Project, error) {
	if s.d.projectsErr != nil {
		return nil, s.d.projectsErr
	}
	var out []*stackauth.Project
	for _, p := range s.d.projects {
		if filter.Name != "" && p.Name != filter.Name {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type stubMemberships struct{ d *stubDirectory }

func (s stubMemberships) Get(_ context.Context, id string) (*stackauth.Membership, error) {
	if s.d.membershipsErr != nil {
		return nil, s.d.membershipsErr
	}
	for _, m := range s.d.memberships {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, stackauth.ErrMembershipNotFound
}

func (s stubMemberships) GetAll(_ context.Context, _, _ int, filter stackauth.MembershipFilter) ([]*stackauth.Membership, error) {
	if s.d.membershipsErr != nil {
		return nil, s.d.membershipsErr
	}
	var out []*stackauth.Membership
	for _, m := range s.d.memberships {
		if filter.UserID != "" && m.UserID != filter.UserID {
			continue
		}
		if filter.ProjectID != "" && m.ProjectID != filter.ProjectID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s stubMemberships) Create(_ context.Context, membership *stackauth.Membership) (*stackauth.Membership, error) {
	created := *membership
	created.ID = s.d.nextID("mbr")
	s.d.memberships = append(s.d.memberships, &created)
	s.d.createdMemberships = append(s.d.createdMemberships, &created)
	return &created, nil
}

func (s stubMemberships) Update(_ context.Context, membership *stackauth.Membership) (*stackauth.Membership, error) {
	for i, m := range s.d.memberships {
		if m.ID == membership.ID {
			s.d.memberships[i] = membership
			return membership, nil
		}
	}
	return nil, stackauth.ErrMembershipNotFound
}

func (s stubMemberships) Delete(_ context.Context, _ string) error { return nil }

type stubProviderConfigs struct{ d *stubDirectory }

func (s stubProviderConfigs) Get(_ context.Context, id string) (*stackauth.ProviderConfig, error) {
	pc, ok := s.d.providerConfigs[id]
	if !ok {
		return nil, stackauth.ErrUserNotFound
	}
	return pc, nil
}

// stubProvider records provider interactions. Auth calls return the canned
// auth value; deletes are collected.
type stubProvider struct {
	auth    *stackauth.ProviderAuth
	magic   *stackauth.MagicAuth
	authErr error

	sessionID  string
	sessionErr error

	deleted      []string
	signupCalls  int
	authURLCalls int
}

func (p *stubProvider) result() (*stackauth.ProviderAuth, error) {
	if p.authErr != nil {
		return nil, p.authErr
	}
	if p.auth != nil {
		return p.auth, nil
	}
	return &stackauth.ProviderAuth{
		Identity: stackauth.ExternalIdentity{
			ID:        "user_01HXYZ",
			Email:     "person@example.com",
			FirstName: "Pat",
			LastName:  "Doe",
		},
		AccessToken:   "access-token",
		SealedSession: "sealed-session",
	}, nil
}

func (p *stubProvider) AuthenticateWithPassword(context.Context, string, string) (*stackauth.ProviderAuth, error) {
	return p.result()
}

func (p *stubProvider) SignUpWithPassword(context.Context, string, string, string, string) (*stackauth.ProviderAuth, error) {
	p.signupCalls++
	return p.result()
}

func (p *stubProvider) AuthenticateWithCode(context.Context, string) (*stackauth.ProviderAuth, error) {
	return p.result()
}

func (p *stubProvider) CreateMagicAuth(_ context.Context, email string) (*stackauth.MagicAuth, error) {
	if p.magic != nil {
		return p.magic, nil
	}
	return &stackauth.MagicAuth{ID: "magic_01", Email: email}, nil
}

func (p *stubProvider) AuthenticateWithMagicAuth(context.Context, string, string) (*stackauth.ProviderAuth, error) {
	return p.result()
}

func (p *stubProvider) SessionFromCookie(context.Context, string) (string, error) {
	if p.sessionErr != nil {
		return "", p.sessionErr
	}
	if p.sessionID != "" {
		return p.sessionID, nil
	}
	return "session_01", nil
}

func (p *stubProvider) AuthorizationURL(provider, redirectURL string) (string, error) {
	p.authURLCalls++
	return "https://provider.test/authorize?provider=" + provider + "&redirect_uri=" + redirectURL, nil
}

func (p *stubProvider) LogoutURL(sessionID, returnTo string) (string, error) {
	return "https://provider.test/logout?session_id=" + sessionID + "&return_to=" + returnTo, nil
}

func (p *stubProvider) DeleteUser(_ context.Context, externalID string) error {
	p.deleted = append(p.deleted, externalID)
	return nil
}
