package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/principal"
	"github.com/gameplatform/role-service/internal/domain/repository"
)

var testDB *pgxpool.Pool

// TestMain connects to the test database named by TEST_DB_DSN and runs
// migrations. Without a DSN the integration tests skip and only the
// pure unit tests run.
func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn != "" {
		var err error
		testDB, err = pgxpool.New(context.Background(), dsn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to connect to test database: %v\n", err)
			os.Exit(1)
		}

		mig, err := migrate.New("file://../../../migrations/sql", dsn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create migration instance: %v\n", err)
			os.Exit(1)
		}
		if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
			fmt.Fprintf(os.Stderr, "Failed to apply migrations: %v\n", err)
			os.Exit(1)
		}
	}

	code := m.Run()
	if testDB != nil {
		testDB.Close()
	}
	os.Exit(code)
}

func requireTestDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("TEST_DB_DSN not set, skipping integration test")
	}
}

func clearRoleTables(t *testing.T) {
	t.Helper()
	for _, table := range []string{"shared_roles", "roles", "role_audiences", "role_audit_log"} {
		_, err := testDB.Exec(context.Background(), fmt.Sprintf("DELETE FROM %s", table))
		require.NoError(t, err, "Failed to clear table %s", table)
	}
}

// stubDirectory backs every collaborator interface with fixed data.
type stubDirectory struct {
	usersByID  map[string]string
	groupsByID map[string]string
	scopes     []string
	idpGroups  map[string][]entity.IdpGroup
	orgID      string
	orgName    string
	owner      string
}

type stubUserResolver struct{ d *stubDirectory }

func (r stubUserResolver) NamesByIDs(ctx context.Context, ids []string, tenantDomain string) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range ids {
		if name, ok := r.d.usersByID[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (r stubUserResolver) IDsByNames(ctx context.Context, names []string, tenantDomain string) (map[string]string, error) {
	out := make(map[string]string)
	for _, name := range names {
		for id, candidate := range r.d.usersByID {
			if candidate == name {
				out[name] = id
			}
		}
	}
	return out, nil
}

func (r stubUserResolver) IDByName(ctx context.Context, name, tenantDomain string) (string, error) {
	ids, _ := r.IDsByNames(ctx, []string{name}, tenantDomain)
	if id, ok := ids[name]; ok {
		return id, nil
	}
	return "", domainErrors.ErrNotFound
}

func (r stubUserResolver) NameByID(ctx context.Context, id, tenantDomain string) (string, error) {
	if name, ok := r.d.usersByID[id]; ok {
		return name, nil
	}
	return "", domainErrors.ErrNotFound
}

type stubGroupResolver struct{ d *stubDirectory }

func (r stubGroupResolver) NamesByIDs(ctx context.Context, ids []string, tenantDomain string) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range ids {
		if name, ok := r.d.groupsByID[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (r stubGroupResolver) IDsByNames(ctx context.Context, names []string, tenantDomain string) (map[string]string, error) {
	out := make(map[string]string)
	for _, name := range names {
		for id, candidate := range r.d.groupsByID {
			if candidate == name {
				out[name] = id
			}
		}
	}
	return out, nil
}

func (d *stubDirectory) ScopesForTenant(ctx context.Context, tenantDomain string) ([]string, error) {
	return d.scopes, nil
}

func (d *stubDirectory) GroupsForIdp(ctx context.Context, idpID, tenantDomain string) ([]entity.IdpGroup, error) {
	groups, ok := d.idpGroups[idpID]
	if !ok {
		return nil, domainErrors.NewDomainError(domainErrors.CodeIdpNotFound,
			"identity provider "+idpID+" is not configured")
	}
	return groups, nil
}

func (d *stubDirectory) OrganizationIDForTenant(ctx context.Context, tenantDomain string) (string, error) {
	return d.orgID, nil
}

func (d *stubDirectory) OrganizationName(ctx context.Context, orgID string) (string, error) {
	return d.orgName, nil
}

func (d *stubDirectory) ApplicationName(ctx context.Context, appID, tenantDomain string) (string, error) {
	return "App " + appID, nil
}

func (d *stubDirectory) AssociatedApplications(ctx context.Context, roleID, tenantDomain string) ([]entity.AssociatedApplication, error) {
	return nil, nil
}

func (d *stubDirectory) OwnerUsername(ctx context.Context, tenantDomain string) (string, error) {
	return d.owner, nil
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateUser(ctx context.Context, tenantDomain, userKey string) error {
	return nil
}

func (noopInvalidator) InvalidateTenant(ctx context.Context, tenantDomain string) error {
	return nil
}

func newIntegrationDirectory() *stubDirectory {
	return &stubDirectory{
		usersByID: map[string]string{
			"u-1": "alice",
			"u-2": "bob",
			"u-3": "LDAP/carol",
		},
		groupsByID: map[string]string{
			"g-1": "engineering",
			"g-2": "LDAP/support",
		},
		scopes: []string{"orders:read", "orders:write", "billing:read"},
		idpGroups: map[string][]entity.IdpGroup{
			"idp-1": {
				{IdpID: "idp-1", GroupID: "ext-1", GroupName: "External Admins"},
				{IdpID: "idp-1", GroupID: "ext-2", GroupName: "External Viewers"},
			},
		},
		orgID:   "org-1",
		orgName: "Acme",
		owner:   "alice",
	}
}

func newIntegrationStore(settings RoleStoreSettings) repository.RoleStore {
	d := newIntegrationDirectory()
	return NewPgxRoleStore(testDB, RoleStoreDeps{
		Audiences: NewPgxAudienceRegistry(testDB),
		Users:     stubUserResolver{d},
		Groups:    stubGroupResolver{d},
		Scopes:    d,
		IdpGroups: d,
		Orgs:      d,
		Apps:      d,
		Tenants:   d,
		Cache:     noopInvalidator{},
	}, settings, zap.NewNop())
}

func defaultStoreSettings() RoleStoreSettings {
	return RoleStoreSettings{
		DefaultListLimit:   100,
		MaxListLimit:       1000,
		SystemRolesEnabled: true,
		SystemRoles:        []string{"Administrator", "Everyone"},
		AdminRoleName:      "Administrator",
		EveryoneRoleName:   "Everyone",
	}
}

func TestRoleStore_AddRole_DuplicateNameRejected(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	first, err := store.AddRole(ctx, repository.AddRoleRequest{Name: "Editors", TenantDomain: "acme.com"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	// The same name with different casing collides within the audience.
	_, err = store.AddRole(ctx, repository.AddRoleRequest{Name: "editors", TenantDomain: "acme.com"})
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeRoleAlreadyExists, domainErrors.Code(err))

	// The same name in a different audience is a different role.
	appRole, err := store.AddRole(ctx, repository.AddRoleRequest{
		Name:         "Editors",
		Audience:     entity.AudienceApplication,
		AudienceID:   "app-7",
		TenantDomain: "acme.com",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, appRole.ID)
}

func TestRoleStore_UpdateRoleName_PreservesIdentityAndAssociations(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	created, err := store.AddRole(ctx, repository.AddRoleRequest{
		Name:         "Reviewers",
		UserIDs:      []string{"u-1", "u-3"},
		Permissions:  []entity.Permission{{Name: "orders:read"}},
		TenantDomain: "acme.com",
	})
	require.NoError(t, err)

	require.NoError(t, store.UpdateRoleName(ctx, created.ID, "Auditors", "acme.com"))

	renamed, err := store.GetRole(ctx, created.ID, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, renamed.ID)
	assert.Equal(t, "Auditors", renamed.Name)
	assert.Len(t, renamed.Users, 2)
	require.Len(t, renamed.Permissions, 1)
	assert.Equal(t, "orders:read", renamed.Permissions[0].Name)

	// The old name is released for reuse.
	exists, err := store.IsExistingRoleName(ctx, "Reviewers", "", "", "acme.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRoleStore_UpdateRoleName_DuplicateTargetRejected(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	_, err := store.AddRole(ctx, repository.AddRoleRequest{Name: "Editors", TenantDomain: "acme.com"})
	require.NoError(t, err)
	second, err := store.AddRole(ctx, repository.AddRoleRequest{Name: "Viewers", TenantDomain: "acme.com"})
	require.NoError(t, err)

	err = store.UpdateRoleName(ctx, second.ID, "EDITORS", "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeRoleAlreadyExists, domainErrors.Code(err))
}

func TestRoleStore_GetRoles_PaginationAndFilter(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(RoleStoreSettings{DefaultListLimit: 2, MaxListLimit: 3})

	for _, name := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		_, err := store.AddRole(ctx, repository.AddRoleRequest{Name: name, TenantDomain: "acme.com"})
		require.NoError(t, err)
	}

	// No limit: the configured default applies.
	roles, err := store.GetRoles(ctx, repository.RoleQuery{}, "acme.com")
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "alpha", roles[0].Name)
	assert.Equal(t, "bravo", roles[1].Name)

	// An oversized limit clamps to the maximum instead of failing.
	oversized := 100
	roles, err = store.GetRoles(ctx, repository.RoleQuery{Limit: &oversized}, "acme.com")
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	// Offsets are 1-based: offset 1 is the first role, offset 3 the third.
	limit := 1
	third := 3
	roles, err = store.GetRoles(ctx, repository.RoleQuery{Limit: &limit, Offset: &third}, "acme.com")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "charlie", roles[0].Name)

	first := 1
	roles, err = store.GetRoles(ctx, repository.RoleQuery{Limit: &limit, Offset: &first}, "acme.com")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "alpha", roles[0].Name)

	// Wildcard filters.
	all := 10
	roles, err = store.GetRoles(ctx, repository.RoleQuery{Filter: "*l*", Limit: &all}, "acme.com")
	require.NoError(t, err)
	require.Len(t, roles, 3)

	roles, err = store.GetRoles(ctx, repository.RoleQuery{Filter: "?ravo", Limit: &all}, "acme.com")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "bravo", roles[0].Name)

	// Sorting is rejected, not ignored.
	_, err = store.GetRoles(ctx, repository.RoleQuery{SortBy: "name"}, "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeSortingNotSupported, domainErrors.Code(err))

	count, err := store.GetRolesCount(ctx, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRoleStore_GetRoles_StablePagesForDuplicateNames(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	// The same name may exist in two audiences; page boundaries must not
	// duplicate or drop either copy.
	_, err := store.AddRole(ctx, repository.AddRoleRequest{Name: "Editors", TenantDomain: "acme.com"})
	require.NoError(t, err)
	_, err = store.AddRole(ctx, repository.AddRoleRequest{
		Name:         "Editors",
		Audience:     entity.AudienceApplication,
		AudienceID:   "app-7",
		TenantDomain: "acme.com",
	})
	require.NoError(t, err)

	limit := 1
	seen := make(map[string]struct{})
	for offset := 1; offset <= 2; offset++ {
		page := offset
		roles, err := store.GetRoles(ctx, repository.RoleQuery{Limit: &limit, Offset: &page}, "acme.com")
		require.NoError(t, err)
		require.Len(t, roles, 1)
		assert.Equal(t, "Editors", roles[0].Name)
		seen[roles[0].ID] = struct{}{}
	}
	assert.Len(t, seen, 2)
}

func TestRoleStore_SystemRoleProtection(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	admin, err := store.AddRole(ctx, repository.AddRoleRequest{Name: "Administrator", TenantDomain: "acme.com"})
	require.NoError(t, err)
	everyone, err := store.AddRole(ctx, repository.AddRoleRequest{Name: "Everyone", TenantDomain: "acme.com"})
	require.NoError(t, err)

	err = store.UpdateRoleName(ctx, admin.ID, "Root", "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeOperationForbidden, domainErrors.Code(err))

	err = store.DeleteRole(ctx, admin.ID, "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeOperationForbidden, domainErrors.Code(err))

	err = store.DeleteRole(ctx, everyone.ID, "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeOperationForbidden, domainErrors.Code(err))
}

func TestRoleStore_AdminRoleMemberRemoval(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	admin, err := store.AddRole(ctx, repository.AddRoleRequest{
		Name:         "Administrator",
		UserIDs:      []string{"u-1", "u-2"},
		TenantDomain: "acme.com",
	})
	require.NoError(t, err)

	// Nobody but the tenant owner may remove administrator members.
	err = store.UpdateUserListOfRole(ctx, admin.ID, nil, []string{"u-2"}, "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeOperationForbidden, domainErrors.Code(err))

	ownerCtx := principal.WithActor(ctx, principal.Actor{ID: "u-1", Username: "alice"})
	require.NoError(t, store.UpdateUserListOfRole(ownerCtx, admin.ID, nil, []string{"u-2"}, "acme.com"))

	// The owner itself can never be removed, not even by the owner.
	err = store.UpdateUserListOfRole(ownerCtx, admin.ID, nil, []string{"u-1"}, "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeOperationForbidden, domainErrors.Code(err))

	users, err := store.GetUserListOfRole(ctx, admin.ID, "acme.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name)
}

func TestRoleStore_DeleteRole_CascadesAssociations(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	created, err := store.AddRole(ctx, repository.AddRoleRequest{
		Name:         "Operators",
		UserIDs:      []string{"u-1"},
		GroupIDs:     []string{"g-1"},
		Permissions:  []entity.Permission{{Name: "orders:read"}, {Name: "orders:write"}},
		TenantDomain: "acme.com",
	})
	require.NoError(t, err)
	require.NoError(t, store.UpdateIdpGroupListOfRole(ctx, created.ID,
		[]entity.IdpGroup{{IdpID: "idp-1", GroupID: "ext-1"}}, nil, "acme.com"))

	require.NoError(t, store.DeleteRole(ctx, created.ID, "acme.com"))

	_, err = store.GetRole(ctx, created.ID, "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeRoleNotFound, domainErrors.Code(err))

	for _, table := range []string{"role_users", "role_groups", "role_idp_groups", "role_permissions"} {
		var count int
		err := testDB.QueryRow(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE role_id = $1", table), created.ID).Scan(&count)
		require.NoError(t, err)
		assert.Zero(t, count, "table %s should hold no rows for the deleted role", table)
	}
}

func TestRoleStore_SharedRolePermissionRedirect(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	main, err := store.AddRole(ctx, repository.AddRoleRequest{
		Name:         "Billing",
		Permissions:  []entity.Permission{{Name: "billing:read"}},
		TenantDomain: "acme.com",
	})
	require.NoError(t, err)
	shared, err := store.AddRole(ctx, repository.AddRoleRequest{
		Name:         "Billing",
		Audience:     entity.AudienceApplication,
		AudienceID:   "app-7",
		Permissions:  []entity.Permission{{Name: "orders:read"}},
		TenantDomain: "sub.acme.com",
	})
	require.NoError(t, err)

	var mainAudienceRef int64
	require.NoError(t, testDB.QueryRow(ctx,
		`SELECT audience_ref_id FROM roles WHERE id = $1`, main.ID).Scan(&mainAudienceRef))
	_, err = testDB.Exec(ctx,
		`INSERT INTO shared_roles (role_id, main_role_name, main_audience_ref_id, main_tenant_domain)
		 VALUES ($1, $2, $3, $4)`,
		shared.ID, "Billing", mainAudienceRef, "acme.com")
	require.NoError(t, err)

	// Reads on the shared role surface the main role's grants, not the
	// rows stored under the shared role's own id.
	permissions, err := store.GetPermissionListOfRole(ctx, shared.ID, "sub.acme.com")
	require.NoError(t, err)
	require.Len(t, permissions, 1)
	assert.Equal(t, "billing:read", permissions[0].Name)
}

func TestRoleStore_UpdateIdpGroupList_Validation(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	created, err := store.AddRole(ctx, repository.AddRoleRequest{Name: "Federated", TenantDomain: "acme.com"})
	require.NoError(t, err)

	err = store.UpdateIdpGroupListOfRole(ctx, created.ID,
		[]entity.IdpGroup{{IdpID: "idp-unknown", GroupID: "ext-1"}}, nil, "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeIdpNotFound, domainErrors.Code(err))

	err = store.UpdateIdpGroupListOfRole(ctx, created.ID,
		[]entity.IdpGroup{{IdpID: "idp-1", GroupID: "nonexistent"}}, nil, "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeIdpGroupNotFound, domainErrors.Code(err))

	require.NoError(t, store.UpdateIdpGroupListOfRole(ctx, created.ID,
		[]entity.IdpGroup{{IdpID: "idp-1", GroupID: "ext-1"}}, nil, "acme.com"))

	groups, err := store.GetIdpGroupListOfRole(ctx, created.ID, "acme.com")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "External Admins", groups[0].GroupName)
}

func TestRoleStore_UpdatePermissionList_UnknownScopeRejected(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	store := newIntegrationStore(defaultStoreSettings())

	created, err := store.AddRole(ctx, repository.AddRoleRequest{Name: "Scoped", TenantDomain: "acme.com"})
	require.NoError(t, err)

	err = store.UpdatePermissionListOfRole(ctx, created.ID,
		[]entity.Permission{{Name: "not:registered"}}, nil, "acme.com")
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodePermissionNotFound, domainErrors.Code(err))
}

func TestAudienceRegistry_ResolveIsIdempotent(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	registry := NewPgxAudienceRegistry(testDB)

	first, err := registry.Resolve(ctx, entity.AudienceOrganization, "org-9")
	require.NoError(t, err)
	second, err := registry.Resolve(ctx, entity.AudienceOrganization, "org-9")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	audience, err := registry.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, entity.AudienceOrganization, audience.Kind)
	assert.Equal(t, "org-9", audience.ID)
}

func TestAuditLogRepository_ListAndFind(t *testing.T) {
	requireTestDB(t)
	clearRoleTables(t)
	ctx := context.Background()
	repo := NewPgxAuditLogRepository(testDB)

	roleID := "role-123"
	roleName := "Editors"
	first := &entity.AuditLog{
		Initiator:    "alice",
		Action:       "role_create",
		TargetID:     &roleID,
		TargetName:   &roleName,
		TenantDomain: "acme.com",
		Status:       entity.AuditLogStatusSuccess,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NotZero(t, first.ID)

	second := &entity.AuditLog{
		Initiator:    "bob",
		Action:       "role_delete",
		TargetID:     &roleID,
		TenantDomain: "acme.com",
		Status:       entity.AuditLogStatusFailure,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, second))

	action := "role_create"
	logs, total, err := repo.List(ctx, repository.ListAuditLogParams{
		Page:    1,
		PerPage: 10,
		Action:  &action,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, "alice", logs[0].Initiator)

	found, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "role_create", found.Action)
	assert.Equal(t, "acme.com", found.TenantDomain)

	_, err = repo.FindByID(ctx, first.ID+second.ID+1000)
	require.Error(t, err)
	assert.True(t, domainErrors.IsNotFound(err))
}
