package dirstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	stackauth "github.com/embos/go-stack-auth"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	store := New(bunDB)
	require.NoError(t, store.CreateTables(context.Background()))
	return store
}

func seedTestProject(t *testing.T, store *Store) *stackauth.Project {
	t.Helper()

	project, err := store.SeedProject(context.Background(), &stackauth.Project{
		Name:         "embos",
		RedirectURLs: []string{"https://app.example.com/callback"},
		LogoutURLs:   []string{"https://app.example.com/"},
		RBAC: stackauth.RBACConfig{
			Enabled: true,
			Roles: []stackauth.Role{
				{Name: "user", Permissions: []string{"read"}},
				{Name: "admin", Permissions: []string{"read", "write"}},
			},
		},
	}, &stackauth.ProviderConfig{
		ClientIDs:     map[string]string{"staging": "client_123"},
		ClientSecrets: map[string]string{"staging": "sk_test_123"},
		SignupEnabled: true,
	})
	require.NoError(t, err)
	return project
}

func TestUserCreateDeterministicID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Users().Create(ctx, &stackauth.User{
		Email:     "person@example.com",
		FirstName: "Pat",
		LastName:  "Doe",
	})
	require.NoError(t, err)

	want, err := hashid.NewUUID("person@example.com")
	require.NoError(t, err)
	assert.Equal(t, want.String(), created.ID)

	fetched, err := store.Users().Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "person@example.com", fetched.Email)
	assert.Equal(t, "Pat", fetched.FirstName)
}

func TestUserCreateNormalizesPhone(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Users().Create(ctx, &stackauth.User{
		Email: "person@example.com",
		Phone: "(415) 555-2671",
	})
	require.NoError(t, err)
	assert.Equal(t, "+14155552671", created.Phone)

	// Unparseable input survives untouched.
	other, err := store.Users().Create(ctx, &stackauth.User{
		Email: "other@example.com",
		Phone: "not-a-number",
	})
	require.NoError(t, err)
	assert.Equal(t, "not-a-number", other.Phone)
}

func TestUsersGetAllFiltersByEmail(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := store.Users().Create(ctx, &stackauth.User{Email: email})
		require.NoError(t, err)
	}

	users, err := store.Users().GetAll(ctx, 1, 1, stackauth.UserFilter{Email: "b@example.com"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "b@example.com", users[0].Email)

	users, err = store.Users().GetAll(ctx, 1, 1, stackauth.UserFilter{Email: "missing@example.com"})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserGetMissing(t *testing.T) {
	store := setupStore(t)

	_, err := store.Users().Get(context.Background(), "ffffffff-ffff-ffff-ffff-ffffffffffff")
	require.Error(t, err)
}

func TestSeedProjectAndLookupByName(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	project := seedTestProject(t, store)
	require.NotEmpty(t, project.ID)
	require.NotEmpty(t, project.ProviderConfigID)

	projects, err := store.Projects().GetAll(ctx, 1, 1, stackauth.ProjectFilter{Name: "embos"})
	require.NoError(t, err)
	require.Len(t, projects, 1)

	got := projects[0]
	assert.Equal(t, project.ID, got.ID)
	assert.True(t, got.RBAC.Enabled)
	assert.True(t, got.AllowsRedirect("https://app.example.com/callback"))
	assert.True(t, got.AllowsLogout("https://app.example.com/"))

	pc, err := store.ProviderConfigs().Get(ctx, got.ProviderConfigID)
	require.NoError(t, err)
	assert.Equal(t, "client_123", pc.ClientIDs["staging"])
	assert.Equal(t, "sk_test_123", pc.ClientSecrets["staging"])
	assert.True(t, pc.SignupEnabled)
}

func TestSeedProjectIsIdempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := seedTestProject(t, store)

	// Re-seeding returns the existing record and does not replace its config.
	again, err := store.SeedProject(ctx, &stackauth.Project{
		Name: "embos",
	}, &stackauth.ProviderConfig{
		ClientIDs: map[string]string{"staging": "client_other"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.ProviderConfigID, again.ProviderConfigID)

	pc, err := store.ProviderConfigs().Get(ctx, again.ProviderConfigID)
	require.NoError(t, err)
	assert.Equal(t, "client_123", pc.ClientIDs["staging"])

	projects, err := store.Projects().GetAll(ctx, 1, 10, stackauth.ProjectFilter{Name: "embos"})
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestMembershipLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	project := seedTestProject(t, store)
	user, err := store.Users().Create(ctx, &stackauth.User{Email: "person@example.com"})
	require.NoError(t, err)

	created, err := store.Memberships().Create(ctx, &stackauth.Membership{
		UserID:             user.ID,
		ProjectID:          project.ID,
		ExternalIdentityID: "user_01HXYZ",
		SessionIDs:         []string{"session_01"},
		Role:               stackauth.Role{Name: "user", Permissions: []string{"read"}},
		IsActive:           true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	memberships, err := store.Memberships().GetAll(ctx, 1, 1, stackauth.MembershipFilter{
		UserID:    user.ID,
		ProjectID: project.ID,
	})
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, created.ID, memberships[0].ID)

	// Session appends accumulate, duplicates included.
	membership := memberships[0]
	membership.SessionIDs = membership.AppendSession("session_02")
	membership.SessionIDs = append(membership.SessionIDs, "session_02")

	updated, err := store.Memberships().Update(ctx, membership)
	require.NoError(t, err)
	assert.Equal(t, []string{"session_01", "session_02", "session_02"}, updated.SessionIDs)
	assert.True(t, updated.IsActive)

	fetched, err := store.Memberships().Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.SessionIDs, fetched.SessionIDs)
	assert.Equal(t, "user", fetched.Role.Name)
}

func TestMembershipUpdateMissing(t *testing.T) {
	store := setupStore(t)

	_, err := store.Memberships().Update(context.Background(), &stackauth.Membership{
		ID:         "ffffffff-ffff-ffff-ffff-ffffffffffff",
		SessionIDs: []string{"session_01"},
	})
	require.Error(t, err)
}

func TestParseIDRejectsGarbage(t *testing.T) {
	store := setupStore(t)

	_, err := store.Memberships().Get(context.Background(), "not-a-uuid")
	require.Error(t, err)
}
