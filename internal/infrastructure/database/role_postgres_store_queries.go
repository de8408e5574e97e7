package database

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/repository"
)

func (s *pgxRoleStore) GetRole(ctx context.Context, roleID, tenantDomain string) (*entity.Role, error) {
	role, err := s.getRoleCore(ctx, roleID, tenantDomain)
	if err != nil {
		return nil, err
	}
	role.Users, err = s.GetUserListOfRole(ctx, roleID, tenantDomain)
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (s *pgxRoleStore) GetRoleWithoutUsers(ctx context.Context, roleID, tenantDomain string) (*entity.Role, error) {
	return s.getRoleCore(ctx, roleID, tenantDomain)
}

// getRoleCore loads everything but the user list.
func (s *pgxRoleStore) getRoleCore(ctx context.Context, roleID, tenantDomain string) (*entity.Role, error) {
	row, err := s.fetchRoleRow(ctx, roleID, tenantDomain)
	if err != nil {
		return nil, err
	}
	audience, err := s.deps.Audiences.Get(ctx, row.AudienceRef)
	if err != nil {
		return nil, err
	}
	s.fillAudienceName(ctx, audience, tenantDomain)

	role := &entity.Role{
		ID:           row.ID,
		Name:         row.Name,
		TenantDomain: row.TenantDomain,
		Audience:     *audience,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}

	role.Groups, err = s.GetGroupListOfRole(ctx, roleID, tenantDomain)
	if err != nil {
		return nil, err
	}
	role.IdpGroups, err = s.GetIdpGroupListOfRole(ctx, roleID, tenantDomain)
	if err != nil {
		return nil, err
	}
	role.Permissions, err = s.GetPermissionListOfRole(ctx, roleID, tenantDomain)
	if err != nil {
		return nil, err
	}

	if audience.Kind == entity.AudienceOrganization {
		role.AssociatedApplications, err = s.deps.Apps.AssociatedApplications(ctx, roleID, tenantDomain)
		if err != nil {
			return nil, domainErrors.NewServerError("failed to resolve associated applications", err)
		}
	}
	return role, nil
}

func (s *pgxRoleStore) GetRoleBasicInfo(ctx context.Context, roleID, tenantDomain string) (*entity.RoleBasicInfo, error) {
	query := `
		SELECT r.id, r.name, a.audience, a.audience_id
		FROM roles r
		JOIN role_audiences a ON a.id = r.audience_ref_id
		WHERE r.id = $1 AND r.tenant_domain = $2`
	basic := &entity.RoleBasicInfo{}
	err := s.db.QueryRow(ctx, query, roleID, tenantDomain).Scan(
		&basic.ID, &basic.Name, &basic.Audience.Kind, &basic.Audience.ID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewClientErrorf(domainErrors.CodeRoleNotFound,
				"role with id %q does not exist", roleID)
		}
		return nil, domainErrors.NewServerError("failed to fetch role basic info", err)
	}
	s.fillAudienceName(ctx, &basic.Audience, tenantDomain)
	return basic, nil
}

func (s *pgxRoleStore) GetRoles(ctx context.Context, q repository.RoleQuery, tenantDomain string) (result []*entity.RoleBasicInfo, err error) {
	defer func() { observeDB("list_roles", err) }()
	if q.SortBy != "" || q.SortOrder != "" {
		return nil, domainErrors.NewClientError(domainErrors.CodeSortingNotSupported,
			"sorting is not supported for role listing")
	}
	limit, err := s.normalizeLimit(q.Limit)
	if err != nil {
		return nil, err
	}
	offset, err := normalizeOffset(q.Offset)
	if err != nil {
		return nil, err
	}
	pattern := buildFilterPattern(q.Filter)

	query := `
		SELECT r.id, r.name, a.audience, a.audience_id
		FROM roles r
		JOIN role_audiences a ON a.id = r.audience_ref_id
		WHERE r.tenant_domain = $1 AND lower(r.name) LIKE lower($2)
		ORDER BY r.name, r.id
		LIMIT $3 OFFSET $4`
	rows, err := s.db.Query(ctx, query, tenantDomain, pattern, limit, offset)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to list roles", err)
	}
	defer rows.Close()

	for rows.Next() {
		basic := &entity.RoleBasicInfo{}
		if err := rows.Scan(&basic.ID, &basic.Name, &basic.Audience.Kind, &basic.Audience.ID); err != nil {
			return nil, domainErrors.NewServerError("failed to scan role during list", err)
		}
		result = append(result, basic)
	}
	if err := rows.Err(); err != nil {
		return nil, domainErrors.NewServerError("error after iterating roles list", err)
	}

	// Audience display names resolve through collaborators; memoize per
	// audience id so a page of same-audience roles costs one lookup.
	resolved := make(map[string]string)
	for _, basic := range result {
		key := basic.Audience.Kind + ":" + basic.Audience.ID
		if name, ok := resolved[key]; ok {
			basic.Audience.Name = name
			continue
		}
		s.fillAudienceName(ctx, &basic.Audience, tenantDomain)
		resolved[key] = basic.Audience.Name
	}
	return result, nil
}

func (s *pgxRoleStore) GetRolesCount(ctx context.Context, tenantDomain string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE tenant_domain = $1`, tenantDomain).Scan(&count)
	if err != nil {
		return 0, domainErrors.NewServerError("failed to count roles", err)
	}
	return count, nil
}

func (s *pgxRoleStore) GetRoleNameByID(ctx context.Context, roleID, tenantDomain string) (string, error) {
	var name string
	err := s.db.QueryRow(ctx,
		`SELECT name FROM roles WHERE id = $1 AND tenant_domain = $2`, roleID, tenantDomain).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domainErrors.NewClientErrorf(domainErrors.CodeRoleNotFound,
				"role with id %q does not exist", roleID)
		}
		return "", domainErrors.NewServerError("failed to resolve role name", err)
	}
	return name, nil
}

func (s *pgxRoleStore) IsExistingRoleID(ctx context.Context, roleID, tenantDomain string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM roles WHERE id = $1 AND tenant_domain = $2)`,
		roleID, tenantDomain).Scan(&exists)
	if err != nil {
		return false, domainErrors.NewServerError("failed to check role existence", err)
	}
	return exists, nil
}

func (s *pgxRoleStore) IsExistingRoleName(ctx context.Context, name, audience, audienceID, tenantDomain string) (bool, error) {
	resolvedAudience, resolvedID, err := s.resolveAudience(ctx, audience, audienceID, tenantDomain)
	if err != nil {
		return false, err
	}
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM roles r
			JOIN role_audiences a ON a.id = r.audience_ref_id
			WHERE lower(r.name) = lower($1) AND r.tenant_domain = $2
			  AND a.audience = $3 AND a.audience_id = $4)`
	var exists bool
	err = s.db.QueryRow(ctx, query, name, tenantDomain, resolvedAudience, resolvedID).Scan(&exists)
	if err != nil {
		return false, domainErrors.NewServerError("failed to check role name existence", err)
	}
	return exists, nil
}

// normalizeLimit applies the configured default and maximum. A missing
// limit gets the default, an oversized one clamps silently, a negative
// one is the caller's error.
func (s *pgxRoleStore) normalizeLimit(limit *int) (int, error) {
	if limit == nil {
		return s.settings.DefaultListLimit, nil
	}
	if *limit < 0 {
		return 0, domainErrors.NewClientErrorf(domainErrors.CodeInvalidLimit,
			"invalid limit %d requested", *limit)
	}
	if *limit > s.settings.MaxListLimit {
		return s.settings.MaxListLimit, nil
	}
	return *limit, nil
}

// normalizeOffset converts the caller's 1-based page start to the
// store's 0-based offset. Nil and zero both mean "from the start".
func normalizeOffset(offset *int) (int, error) {
	if offset == nil {
		return 0, nil
	}
	if *offset < 0 {
		return 0, domainErrors.NewClientErrorf(domainErrors.CodeInvalidOffset,
			"invalid offset %d requested", *offset)
	}
	if *offset > 0 {
		return *offset - 1, nil
	}
	return 0, nil
}

// buildFilterPattern translates the caller's wildcard syntax into a
// LIKE pattern. Blank input and a bare "*" both match everything.
func buildFilterPattern(filter string) string {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == "*" {
		return "%"
	}
	replacer := strings.NewReplacer("%", `\%`, "_", `\_`, "*", "%", "?", "_")
	return replacer.Replace(filter)
}

// mainRoleID resolves the owning role of a shared role, or "" when the
// role is not shared.
func (s *pgxRoleStore) mainRoleID(ctx context.Context, roleID string) (string, error) {
	query := `
		SELECT r.id
		FROM shared_roles sr
		JOIN roles r ON lower(r.name) = lower(sr.main_role_name)
			AND r.tenant_domain = sr.main_tenant_domain
			AND r.audience_ref_id = sr.main_audience_ref_id
		WHERE sr.role_id = $1`
	var mainID string
	err := s.db.QueryRow(ctx, query, roleID).Scan(&mainID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if shared, checkErr := s.isSharedRole(ctx, roleID); checkErr == nil && shared {
				return "", domainErrors.NewServerError("main role of shared role is missing", domainErrors.ErrRoleNotFound)
			}
			return "", nil
		}
		return "", domainErrors.NewServerError("failed to resolve main role", err)
	}
	return mainID, nil
}

func (s *pgxRoleStore) isSharedRole(ctx context.Context, roleID string) (bool, error) {
	var shared bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM shared_roles WHERE role_id = $1)`, roleID).Scan(&shared)
	if err != nil {
		s.logger.Warn("Failed to check shared role record", zap.String("role_id", roleID), zap.Error(err))
		return false, err
	}
	return shared, nil
}
