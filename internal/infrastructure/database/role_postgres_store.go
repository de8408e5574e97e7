package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/interfaces"
	"github.com/gameplatform/role-service/internal/domain/repository"
	"github.com/gameplatform/role-service/internal/utils/metrics"
)

// observeDB records the outcome of one storage operation.
func observeDB(operation string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RoleStoreSettings carries the directory policy knobs the store needs.
type RoleStoreSettings struct {
	DefaultListLimit   int
	MaxListLimit       int
	SystemRolesEnabled bool
	SystemRoles        []string
	AdminRoleName      string
	EveryoneRoleName   string
}

// RoleStoreDeps bundles the collaborator services consumed by the store.
type RoleStoreDeps struct {
	Audiences repository.AudienceRegistry
	Users     interfaces.IdentityResolver
	Groups    interfaces.GroupResolver
	Scopes    interfaces.ScopeCatalog
	IdpGroups interfaces.IdpGroupCatalog
	Orgs      interfaces.OrganizationResolver
	Apps      interfaces.ApplicationResolver
	Tenants   interfaces.TenantLookup
	Cache     interfaces.CacheInvalidator
}

type pgxRoleStore struct {
	db       *pgxpool.Pool
	deps     RoleStoreDeps
	settings RoleStoreSettings
	logger   *zap.Logger
}

// NewPgxRoleStore creates a new instance of pgxRoleStore.
func NewPgxRoleStore(db *pgxpool.Pool, deps RoleStoreDeps, settings RoleStoreSettings, logger *zap.Logger) repository.RoleStore {
	return &pgxRoleStore{db: db, deps: deps, settings: settings, logger: logger}
}

// AddRole persists the role, its membership, and its permissions inside
// one transaction. The audience reference is shared infrastructure and
// is resolved outside the transaction; it survives a rollback.
func (s *pgxRoleStore) AddRole(ctx context.Context, req repository.AddRoleRequest) (basic *entity.RoleBasicInfo, err error) {
	defer func() { observeDB("add_role", err) }()
	audience, audienceID, err := s.resolveAudience(ctx, req.Audience, req.AudienceID, req.TenantDomain)
	if err != nil {
		return nil, err
	}
	ref, err := s.deps.Audiences.Resolve(ctx, audience, audienceID)
	if err != nil {
		return nil, err
	}

	exists, err := s.IsExistingRoleName(ctx, req.Name, audience, audienceID, req.TenantDomain)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domainErrors.NewClientErrorf(domainErrors.CodeRoleAlreadyExists,
			"role %q already exists in the %s audience", req.Name, audience)
	}

	if err := s.validatePermissions(ctx, audience, req.Permissions, req.TenantDomain); err != nil {
		return nil, err
	}

	// Resolution failures abort during creation, unlike membership
	// updates where unresolvable members are skipped.
	userNames, err := s.resolveAllUserNames(ctx, req.UserIDs, req.TenantDomain)
	if err != nil {
		return nil, err
	}
	groupNames, err := s.resolveAllGroupNames(ctx, req.GroupIDs, req.TenantDomain)
	if err != nil {
		return nil, err
	}

	roleID := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	insertRole := `
		INSERT INTO roles (id, name, tenant_domain, audience_ref_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`
	if _, err := tx.Exec(ctx, insertRole, roleID, req.Name, req.TenantDomain, ref, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.NewClientErrorf(domainErrors.CodeRoleAlreadyExists,
				"role %q already exists in the %s audience", req.Name, audience)
		}
		return nil, domainErrors.NewServerError("failed to create role", err)
	}

	for _, name := range userNames {
		domain, user := splitMemberName(name)
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_users (role_id, user_name, user_domain) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			roleID, user, domain); err != nil {
			return nil, domainErrors.NewServerError("failed to add role member", err)
		}
	}
	for _, name := range groupNames {
		domain, group := splitMemberName(name)
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_groups (role_id, group_name, group_domain) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			roleID, group, domain); err != nil {
			return nil, domainErrors.NewServerError("failed to add role group", err)
		}
	}
	for _, perm := range req.Permissions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, scope_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			roleID, perm.Name); err != nil {
			return nil, domainErrors.NewServerError("failed to add role permission", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domainErrors.NewServerError("failed to commit role creation", err)
	}

	for _, name := range userNames {
		s.invalidateUserCache(ctx, req.TenantDomain, name)
	}

	basic = &entity.RoleBasicInfo{
		ID:       roleID,
		Name:     req.Name,
		Audience: entity.RoleAudience{Kind: audience, ID: audienceID},
	}
	s.fillAudienceName(ctx, &basic.Audience, req.TenantDomain)
	return basic, nil
}

// resolveAudience applies the audience default: when no audience is
// given the role is scoped to the tenant's own organization.
func (s *pgxRoleStore) resolveAudience(ctx context.Context, audience, audienceID, tenantDomain string) (string, string, error) {
	if audience == "" {
		orgID, err := s.deps.Orgs.OrganizationIDForTenant(ctx, tenantDomain)
		if err != nil {
			return "", "", domainErrors.NewServerError("failed to resolve tenant organization", err)
		}
		return entity.AudienceOrganization, orgID, nil
	}
	return strings.ToUpper(audience), audienceID, nil
}

// fillAudienceName resolves the audience display name. Resolution
// failure degrades to an empty name, the caller still gets the role.
func (s *pgxRoleStore) fillAudienceName(ctx context.Context, audience *entity.RoleAudience, tenantDomain string) {
	var err error
	switch audience.Kind {
	case entity.AudienceOrganization:
		audience.Name, err = s.deps.Orgs.OrganizationName(ctx, audience.ID)
	case entity.AudienceApplication:
		audience.Name, err = s.deps.Apps.ApplicationName(ctx, audience.ID, tenantDomain)
	}
	if err != nil {
		s.logger.Warn("Failed to resolve audience display name",
			zap.String("audience", audience.Kind), zap.String("audience_id", audience.ID), zap.Error(err))
	}
}

// validatePermissions checks added permissions against the audience's
// allowed scopes. APPLICATION-audience roles are currently exempt; the
// scope model for application roles is not settled yet.
func (s *pgxRoleStore) validatePermissions(ctx context.Context, audience string, permissions []entity.Permission, tenantDomain string) error {
	if audience != entity.AudienceOrganization || len(permissions) == 0 {
		return nil
	}
	scopes, err := s.deps.Scopes.ScopesForTenant(ctx, tenantDomain)
	if err != nil {
		return domainErrors.NewServerError("failed to load tenant scopes", err)
	}
	allowed := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		allowed[scope] = struct{}{}
	}
	for _, perm := range permissions {
		if _, ok := allowed[perm.Name]; !ok {
			return domainErrors.NewDomainError(domainErrors.CodePermissionNotFound,
				fmt.Sprintf("permission %q is not a registered scope of tenant %s", perm.Name, tenantDomain))
		}
	}
	return nil
}

// resolveAllUserNames maps every given user ID to its display name and
// fails when any ID is unresolvable.
func (s *pgxRoleStore) resolveAllUserNames(ctx context.Context, userIDs []string, tenantDomain string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	names, err := s.deps.Users.NamesByIDs(ctx, userIDs, tenantDomain)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to resolve user names", err)
	}
	resolved := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		name, ok := names[id]
		if !ok {
			return nil, domainErrors.NewClientErrorf(domainErrors.CodeInvalidRequest,
				"user id %q cannot be resolved", id)
		}
		resolved = append(resolved, name)
	}
	return resolved, nil
}

func (s *pgxRoleStore) resolveAllGroupNames(ctx context.Context, groupIDs []string, tenantDomain string) ([]string, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	names, err := s.deps.Groups.NamesByIDs(ctx, groupIDs, tenantDomain)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to resolve group names", err)
	}
	resolved := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		name, ok := names[id]
		if !ok {
			return nil, domainErrors.NewClientErrorf(domainErrors.CodeInvalidRequest,
				"group id %q cannot be resolved", id)
		}
		resolved = append(resolved, name)
	}
	return resolved, nil
}

func (s *pgxRoleStore) invalidateUserCache(ctx context.Context, tenantDomain, userName string) {
	if err := s.deps.Cache.InvalidateUser(ctx, tenantDomain, userName); err != nil {
		s.logger.Warn("Failed to invalidate user cache",
			zap.String("tenant", tenantDomain), zap.String("user", userName), zap.Error(err))
	}
}

func (s *pgxRoleStore) invalidateTenantCache(ctx context.Context, tenantDomain string) {
	if err := s.deps.Cache.InvalidateTenant(ctx, tenantDomain); err != nil {
		s.logger.Warn("Failed to invalidate tenant cache",
			zap.String("tenant", tenantDomain), zap.Error(err))
	}
}

// isSystemRole reports whether name is protected by the configured
// system-role set.
func (s *pgxRoleStore) isSystemRole(name string) bool {
	if !s.settings.SystemRolesEnabled {
		return false
	}
	for _, systemRole := range s.settings.SystemRoles {
		if strings.EqualFold(systemRole, name) {
			return true
		}
	}
	return false
}

func (s *pgxRoleStore) GetSystemRoles() []string {
	if !s.settings.SystemRolesEnabled {
		return nil
	}
	roles := make([]string, len(s.settings.SystemRoles))
	copy(roles, s.settings.SystemRoles)
	return roles
}

// splitMemberName splits a domain-qualified member name into its
// user-store domain and bare name. Unqualified names fall back to the
// primary domain.
func splitMemberName(name string) (domain, member string) {
	if idx := strings.Index(name, entity.DomainSeparator); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return entity.PrimaryDomain, name
}

// joinMemberName is the inverse of splitMemberName.
func joinMemberName(domain, member string) string {
	if domain == "" || strings.EqualFold(domain, entity.PrimaryDomain) {
		return member
	}
	return domain + entity.DomainSeparator + member
}

// roleRow is the base projection fetched before association loads.
type roleRow struct {
	ID           string
	Name         string
	TenantDomain string
	AudienceRef  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *pgxRoleStore) fetchRoleRow(ctx context.Context, roleID, tenantDomain string) (*roleRow, error) {
	query := `
		SELECT id, name, tenant_domain, audience_ref_id, created_at, updated_at
		FROM roles
		WHERE id = $1 AND tenant_domain = $2`
	row := &roleRow{}
	err := s.db.QueryRow(ctx, query, roleID, tenantDomain).Scan(
		&row.ID, &row.Name, &row.TenantDomain, &row.AudienceRef, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewClientErrorf(domainErrors.CodeRoleNotFound,
				"role with id %q does not exist", roleID)
		}
		return nil, domainErrors.NewServerError("failed to fetch role", err)
	}
	return row, nil
}

var _ repository.RoleStore = (*pgxRoleStore)(nil)
