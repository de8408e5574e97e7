package database

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/principal"
)

func (s *pgxRoleStore) GetUserListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.UserBasicInfo, error) {
	if err := s.requireExistingRole(ctx, roleID, tenantDomain); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT user_name, user_domain FROM role_users WHERE role_id = $1 ORDER BY user_name`, roleID)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to list role users", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name, domain string
		if err := rows.Scan(&name, &domain); err != nil {
			return nil, domainErrors.NewServerError("failed to scan role user", err)
		}
		names = append(names, joinMemberName(domain, name))
	}
	if err := rows.Err(); err != nil {
		return nil, domainErrors.NewServerError("error after iterating role users", err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	ids, err := s.deps.Users.IDsByNames(ctx, names, tenantDomain)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to resolve user ids", err)
	}
	users := make([]entity.UserBasicInfo, 0, len(names))
	for _, name := range names {
		id, ok := ids[name]
		if !ok {
			s.logger.Debug("Skipping role member with no resolvable id",
				zap.String("role_id", roleID), zap.String("user", name))
			continue
		}
		users = append(users, entity.UserBasicInfo{ID: id, Name: name})
	}
	return users, nil
}

func (s *pgxRoleStore) UpdateUserListOfRole(ctx context.Context, roleID string, addedUserIDs, removedUserIDs []string, tenantDomain string) (err error) {
	defer func() { observeDB("update_user_list", err) }()
	roleName, err := s.GetRoleNameByID(ctx, roleID, tenantDomain)
	if err != nil {
		return err
	}
	if len(addedUserIDs) == 0 && len(removedUserIDs) == 0 {
		return nil
	}

	addedNames, err := s.resolveUserNamesSkipping(ctx, addedUserIDs, tenantDomain)
	if err != nil {
		return err
	}
	removedNames, err := s.resolveUserNamesSkipping(ctx, removedUserIDs, tenantDomain)
	if err != nil {
		return err
	}

	if err := s.validateAdminRoleRemoval(ctx, roleName, removedNames, tenantDomain); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domainErrors.NewServerError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, name := range addedNames {
		domain, user := splitMemberName(name)
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_users (role_id, user_name, user_domain) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			roleID, user, domain); err != nil {
			return domainErrors.NewServerError("failed to add role member", err)
		}
	}
	for _, name := range removedNames {
		domain, user := splitMemberName(name)
		if _, err := tx.Exec(ctx,
			`DELETE FROM role_users WHERE role_id = $1 AND user_name = $2 AND user_domain = $3`,
			roleID, user, domain); err != nil {
			return domainErrors.NewServerError("failed to remove role member", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domainErrors.NewServerError("failed to commit role membership update", err)
	}

	for _, name := range append(addedNames, removedNames...) {
		s.invalidateUserCache(ctx, tenantDomain, name)
	}
	return nil
}

func (s *pgxRoleStore) GetGroupListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.GroupBasicInfo, error) {
	if err := s.requireExistingRole(ctx, roleID, tenantDomain); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT group_name, group_domain FROM role_groups WHERE role_id = $1 ORDER BY group_name`, roleID)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to list role groups", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name, domain string
		if err := rows.Scan(&name, &domain); err != nil {
			return nil, domainErrors.NewServerError("failed to scan role group", err)
		}
		names = append(names, joinMemberName(domain, name))
	}
	if err := rows.Err(); err != nil {
		return nil, domainErrors.NewServerError("error after iterating role groups", err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	ids, err := s.deps.Groups.IDsByNames(ctx, names, tenantDomain)
	if err != nil {
		return nil, domainErrors.NewServerError("failed to resolve group ids", err)
	}
	groups := make([]entity.GroupBasicInfo, 0, len(names))
	for _, name := range names {
		id, ok := ids[name]
		if !ok {
			s.logger.Debug("Skipping role group with no resolvable id",
				zap.String("role_id", roleID), zap.String("group", name))
			continue
		}
		groups = append(groups, entity.GroupBasicInfo{ID: id, Name: name})
	}
	return groups, nil
}

func (s *pgxRoleStore) UpdateGroupListOfRole(ctx context.Context, roleID string, addedGroupIDs, removedGroupIDs []string, tenantDomain string) (err error) {
	defer func() { observeDB("update_group_list", err) }()
	if err := s.requireExistingRole(ctx, roleID, tenantDomain); err != nil {
		return err
	}
	if len(addedGroupIDs) == 0 && len(removedGroupIDs) == 0 {
		return nil
	}

	addedNames, err := s.resolveGroupNamesSkipping(ctx, addedGroupIDs, tenantDomain)
	if err != nil {
		return err
	}
	removedNames, err := s.resolveGroupNamesSkipping(ctx, removedGroupIDs, tenantDomain)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domainErrors.NewServerError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, name := range addedNames {
		domain, group := splitMemberName(name)
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_groups (role_id, group_name, group_domain) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			roleID, group, domain); err != nil {
			return domainErrors.NewServerError("failed to add role group", err)
		}
	}
	for _, name := range removedNames {
		domain, group := splitMemberName(name)
		if _, err := tx.Exec(ctx,
			`DELETE FROM role_groups WHERE role_id = $1 AND group_name = $2 AND group_domain = $3`,
			roleID, group, domain); err != nil {
			return domainErrors.NewServerError("failed to remove role group", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domainErrors.NewServerError("failed to commit role group update", err)
	}

	// Group membership feeds into authorization for an unknown set of
	// users, so the whole tenant cache goes.
	s.invalidateTenantCache(ctx, tenantDomain)
	return nil
}

// validateAdminRoleRemoval enforces the administrator protections:
// only the tenant owner may remove members, and the owner itself can
// never be removed.
func (s *pgxRoleStore) validateAdminRoleRemoval(ctx context.Context, roleName string, removedNames []string, tenantDomain string) error {
	if !s.settings.SystemRolesEnabled || len(removedNames) == 0 {
		return nil
	}
	if !strings.EqualFold(roleName, s.settings.AdminRoleName) {
		return nil
	}
	owner, err := s.deps.Tenants.OwnerUsername(ctx, tenantDomain)
	if err != nil {
		return domainErrors.NewServerError("failed to resolve tenant owner", err)
	}
	actor, ok := principal.FromContext(ctx)
	if !ok || !strings.EqualFold(actor.Username, owner) {
		return domainErrors.NewClientError(domainErrors.CodeOperationForbidden,
			"only the tenant owner may remove members of the administrator role")
	}
	for _, name := range removedNames {
		if strings.EqualFold(name, owner) {
			return domainErrors.NewClientError(domainErrors.CodeOperationForbidden,
				"the tenant owner cannot be removed from the administrator role")
		}
	}
	return nil
}

// resolveUserNamesSkipping maps user IDs to names, dropping
// unresolvable entries with a logged diagnostic instead of failing the
// batch.
func (s *pgxRoleStore) resolveUserNamesSkipping(ctx context.Context, userIDs []string, tenantDomain string) ([]string, error) {
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
			s.logger.Warn("Skipping unresolvable user id in membership update",
				zap.String("user_id", id), zap.String("tenant", tenantDomain))
			continue
		}
		resolved = append(resolved, name)
	}
	return resolved, nil
}

func (s *pgxRoleStore) resolveGroupNamesSkipping(ctx context.Context, groupIDs []string, tenantDomain string) ([]string, error) {
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
			s.logger.Warn("Skipping unresolvable group id in membership update",
				zap.String("group_id", id), zap.String("tenant", tenantDomain))
			continue
		}
		resolved = append(resolved, name)
	}
	return resolved, nil
}

func (s *pgxRoleStore) requireExistingRole(ctx context.Context, roleID, tenantDomain string) error {
	exists, err := s.IsExistingRoleID(ctx, roleID, tenantDomain)
	if err != nil {
		return err
	}
	if !exists {
		return domainErrors.NewClientErrorf(domainErrors.CodeRoleNotFound,
			"role with id %q does not exist", roleID)
	}
	return nil
}
