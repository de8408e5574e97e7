package database

import (
	"context"

	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
)

func (s *pgxRoleStore) GetIdpGroupListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.IdpGroup, error) {
	if err := s.requireExistingRole(ctx, roleID, tenantDomain); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT idp_id, idp_group_id FROM role_idp_groups WHERE role_id = $1 ORDER BY idp_id, idp_group_id`, roleID)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to list role idp groups", err)
	}
	defer rows.Close()

	var groups []entity.IdpGroup
	for rows.Next() {
		var g entity.IdpGroup
		if err := rows.Scan(&g.IdpID, &g.GroupID); err != nil {
			return nil, domainErrors.NewServerError("failed to scan role idp group", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, domainErrors.NewServerError("error after iterating role idp groups", err)
	}

	// Group names live in the provider's configuration and are resolved
	// at read time. A name that cannot be resolved stays empty.
	byIdp := make(map[string]map[string]string)
	for i := range groups {
		g := &groups[i]
		catalog, ok := byIdp[g.IdpID]
		if !ok {
			catalog = make(map[string]string)
			configured, err := s.deps.IdpGroups.GroupsForIdp(ctx, g.IdpID, tenantDomain)
			if err != nil {
				s.logger.Warn("Failed to resolve idp group names",
					zap.String("idp_id", g.IdpID), zap.Error(err))
			}
			for _, c := range configured {
				catalog[c.GroupID] = c.GroupName
			}
			byIdp[g.IdpID] = catalog
		}
		g.GroupName = catalog[g.GroupID]
	}
	return groups, nil
}

func (s *pgxRoleStore) UpdateIdpGroupListOfRole(ctx context.Context, roleID string, added, removed []entity.IdpGroup, tenantDomain string) (err error) {
	defer func() { observeDB("update_idp_group_list", err) }()
	if err := s.requireExistingRole(ctx, roleID, tenantDomain); err != nil {
		return err
	}
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	if err := s.validateIdpGroups(ctx, added, tenantDomain); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domainErrors.NewServerError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, g := range added {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_idp_groups (role_id, idp_id, idp_group_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			roleID, g.IdpID, g.GroupID); err != nil {
			return domainErrors.NewServerError("failed to add role idp group", err)
		}
	}
	for _, g := range removed {
		if _, err := tx.Exec(ctx,
			`DELETE FROM role_idp_groups WHERE role_id = $1 AND idp_id = $2 AND idp_group_id = $3`,
			roleID, g.IdpID, g.GroupID); err != nil {
			return domainErrors.NewServerError("failed to remove role idp group", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domainErrors.NewServerError("failed to commit role idp group update", err)
	}

	s.invalidateTenantCache(ctx, tenantDomain)
	return nil
}

// validateIdpGroups checks every added group against its provider's
// current group configuration.
func (s *pgxRoleStore) validateIdpGroups(ctx context.Context, added []entity.IdpGroup, tenantDomain string) error {
	byIdp := make(map[string]map[string]struct{})
	for _, g := range added {
		configured, ok := byIdp[g.IdpID]
		if !ok {
			groups, err := s.deps.IdpGroups.GroupsForIdp(ctx, g.IdpID, tenantDomain)
			if err != nil {
				if domainErrors.IsDomainError(err) {
					return err
				}
				return domainErrors.NewDomainError(domainErrors.CodeIdpNotFound,
					"identity provider "+g.IdpID+" cannot be resolved")
			}
			configured = make(map[string]struct{}, len(groups))
			for _, c := range groups {
				configured[c.GroupID] = struct{}{}
			}
			byIdp[g.IdpID] = configured
		}
		if _, ok := configured[g.GroupID]; !ok {
			return domainErrors.NewDomainError(domainErrors.CodeIdpGroupNotFound,
				"group "+g.GroupID+" is not configured for identity provider "+g.IdpID)
		}
	}
	return nil
}

// GetPermissionListOfRole returns the role's permissions. A shared role
// transparently delegates to its main role's permission set.
func (s *pgxRoleStore) GetPermissionListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.Permission, error) {
	if err := s.requireExistingRole(ctx, roleID, tenantDomain); err != nil {
		return nil, err
	}
	effectiveID := roleID
	mainID, err := s.mainRoleID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if mainID != "" {
		effectiveID = mainID
	}

	rows, err := s.db.Query(ctx,
		`SELECT scope_name FROM role_permissions WHERE role_id = $1 ORDER BY scope_name`, effectiveID)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to list role permissions", err)
	}
	defer rows.Close()

	var permissions []entity.Permission
	for rows.Next() {
		var p entity.Permission
		if err := rows.Scan(&p.Name); err != nil {
			return nil, domainErrors.NewServerError("failed to scan role permission", err)
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domainErrors.NewServerError("error after iterating role permissions", err)
	}
	return permissions, nil
}

func (s *pgxRoleStore) UpdatePermissionListOfRole(ctx context.Context, roleID string, added, removed []entity.Permission, tenantDomain string) (err error) {
	defer func() { observeDB("update_permission_list", err) }()
	row, err := s.fetchRoleRow(ctx, roleID, tenantDomain)
	if err != nil {
		return err
	}
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	audience, err := s.deps.Audiences.Get(ctx, row.AudienceRef)
	if err != nil {
		return err
	}
	if err := s.validatePermissions(ctx, audience.Kind, added, tenantDomain); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domainErrors.NewServerError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range added {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, scope_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			roleID, p.Name); err != nil {
			return domainErrors.NewServerError("failed to add role permission", err)
		}
	}
	for _, p := range removed {
		if _, err := tx.Exec(ctx,
			`DELETE FROM role_permissions WHERE role_id = $1 AND scope_name = $2`,
			roleID, p.Name); err != nil {
			return domainErrors.NewServerError("failed to remove role permission", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domainErrors.NewServerError("failed to commit role permission update", err)
	}

	s.invalidateTenantCache(ctx, tenantDomain)
	return nil
}
