package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/entity"
	"github.com/gameplatform/role-service/internal/events"
	"github.com/gameplatform/role-service/internal/utils/metrics"
)

// GetUserListOfRole returns the stored user membership of a role. The
// second result reports whether the role is the everyone role, whose
// stored list understates actual membership.
func (s *RoleDirectoryService) GetUserListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.UserBasicInfo, bool, error) {
	users, err := s.store.GetUserListOfRole(ctx, roleID, tenantDomain)
	if err != nil {
		return nil, false, err
	}
	if s.settings.EveryoneRoleName == "" {
		return users, false, nil
	}
	name, err := s.store.GetRoleNameByID(ctx, roleID, tenantDomain)
	if err != nil {
		return nil, false, err
	}
	return users, s.isEveryoneRole(name), nil
}

func (s *RoleDirectoryService) GetGroupListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.GroupBasicInfo, error) {
	return s.store.GetGroupListOfRole(ctx, roleID, tenantDomain)
}

func (s *RoleDirectoryService) GetIdpGroupListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.IdpGroup, error) {
	return s.store.GetIdpGroupListOfRole(ctx, roleID, tenantDomain)
}

func (s *RoleDirectoryService) GetPermissionListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.Permission, error) {
	return s.store.GetPermissionListOfRole(ctx, roleID, tenantDomain)
}

// UpdateUserListOfRole applies an add-set and a remove-set of user IDs.
// IDs appearing in both sets cancel out before anything is persisted,
// so a contradictory request is a net no-op for those IDs.
func (s *RoleDirectoryService) UpdateUserListOfRole(ctx context.Context, roleID string, addedUserIDs, removedUserIDs []string, tenantDomain string) error {
	defer s.observe("update_user_list", time.Now())
	added, removed := cancelCommonStrings(addedUserIDs, removedUserIDs)

	event := events.RoleEvent{
		Operation:    events.OpUpdateUserList,
		RoleID:       roleID,
		TenantDomain: tenantDomain,
		Initiator:    s.initiator(ctx),
		Details: map[string]interface{}{
			"added": len(added), "removed": len(removed),
		},
	}
	if err := s.dispatcher.DispatchPre(ctx, event); err != nil {
		return err
	}

	if err := s.store.UpdateUserListOfRole(ctx, roleID, added, removed, tenantDomain); err != nil {
		s.logger.Error("Failed to update role user list", zap.String("role_id", roleID), zap.Error(err))
		s.recordAudit(ctx, "role_user_list_update", entity.AuditLogStatusFailure, &roleID, nil, tenantDomain,
			map[string]interface{}{"error": err.Error()})
		metrics.RoleOperationsTotal.WithLabelValues("update_user_list", "failure").Inc()
		return err
	}

	s.recordAudit(ctx, "role_user_list_update", entity.AuditLogStatusSuccess, &roleID, nil, tenantDomain, nil)
	s.dispatcher.DispatchPost(ctx, event)
	metrics.RoleOperationsTotal.WithLabelValues("update_user_list", "success").Inc()
	return nil
}

// UpdateGroupListOfRole is the group counterpart of
// UpdateUserListOfRole, with the same cancellation rule.
func (s *RoleDirectoryService) UpdateGroupListOfRole(ctx context.Context, roleID string, addedGroupIDs, removedGroupIDs []string, tenantDomain string) error {
	defer s.observe("update_group_list", time.Now())
	added, removed := cancelCommonStrings(addedGroupIDs, removedGroupIDs)

	event := events.RoleEvent{
		Operation:    events.OpUpdateGroupList,
		RoleID:       roleID,
		TenantDomain: tenantDomain,
		Initiator:    s.initiator(ctx),
		Details: map[string]interface{}{
			"added": len(added), "removed": len(removed),
		},
	}
	if err := s.dispatcher.DispatchPre(ctx, event); err != nil {
		return err
	}

	if err := s.store.UpdateGroupListOfRole(ctx, roleID, added, removed, tenantDomain); err != nil {
		s.logger.Error("Failed to update role group list", zap.String("role_id", roleID), zap.Error(err))
		s.recordAudit(ctx, "role_group_list_update", entity.AuditLogStatusFailure, &roleID, nil, tenantDomain,
			map[string]interface{}{"error": err.Error()})
		metrics.RoleOperationsTotal.WithLabelValues("update_group_list", "failure").Inc()
		return err
	}

	s.recordAudit(ctx, "role_group_list_update", entity.AuditLogStatusSuccess, &roleID, nil, tenantDomain, nil)
	s.dispatcher.DispatchPost(ctx, event)
	metrics.RoleOperationsTotal.WithLabelValues("update_group_list", "success").Inc()
	return nil
}

func (s *RoleDirectoryService) UpdateIdpGroupListOfRole(ctx context.Context, roleID string, added, removed []entity.IdpGroup, tenantDomain string) error {
	defer s.observe("update_idp_group_list", time.Now())
	added, removed = cancelCommonIdpGroups(added, removed)

	event := events.RoleEvent{
		Operation:    events.OpUpdateIdpGroupList,
		RoleID:       roleID,
		TenantDomain: tenantDomain,
		Initiator:    s.initiator(ctx),
		Details: map[string]interface{}{
			"added": len(added), "removed": len(removed),
		},
	}
	if err := s.dispatcher.DispatchPre(ctx, event); err != nil {
		return err
	}

	if err := s.store.UpdateIdpGroupListOfRole(ctx, roleID, added, removed, tenantDomain); err != nil {
		s.logger.Error("Failed to update role idp group list", zap.String("role_id", roleID), zap.Error(err))
		s.recordAudit(ctx, "role_idp_group_list_update", entity.AuditLogStatusFailure, &roleID, nil, tenantDomain,
			map[string]interface{}{"error": err.Error()})
		metrics.RoleOperationsTotal.WithLabelValues("update_idp_group_list", "failure").Inc()
		return err
	}

	s.recordAudit(ctx, "role_idp_group_list_update", entity.AuditLogStatusSuccess, &roleID, nil, tenantDomain, nil)
	s.dispatcher.DispatchPost(ctx, event)
	metrics.RoleOperationsTotal.WithLabelValues("update_idp_group_list", "success").Inc()
	return nil
}

func (s *RoleDirectoryService) UpdatePermissionListOfRole(ctx context.Context, roleID string, added, removed []entity.Permission, tenantDomain string) error {
	defer s.observe("update_permission_list", time.Now())
	added, removed = cancelCommonPermissions(added, removed)

	event := events.RoleEvent{
		Operation:    events.OpUpdatePermissionList,
		RoleID:       roleID,
		TenantDomain: tenantDomain,
		Initiator:    s.initiator(ctx),
		Details: map[string]interface{}{
			"added": len(added), "removed": len(removed),
		},
	}
	if err := s.dispatcher.DispatchPre(ctx, event); err != nil {
		return err
	}

	if err := s.store.UpdatePermissionListOfRole(ctx, roleID, added, removed, tenantDomain); err != nil {
		s.logger.Error("Failed to update role permission list", zap.String("role_id", roleID), zap.Error(err))
		s.recordAudit(ctx, "role_permission_list_update", entity.AuditLogStatusFailure, &roleID, nil, tenantDomain,
			map[string]interface{}{"error": err.Error()})
		metrics.RoleOperationsTotal.WithLabelValues("update_permission_list", "failure").Inc()
		return err
	}

	s.recordAudit(ctx, "role_permission_list_update", entity.AuditLogStatusSuccess, &roleID, nil, tenantDomain, nil)
	s.dispatcher.DispatchPost(ctx, event)
	metrics.RoleOperationsTotal.WithLabelValues("update_permission_list", "success").Inc()
	return nil
}

// cancelCommonStrings drops every identifier present in both sets.
func cancelCommonStrings(added, removed []string) ([]string, []string) {
	inAdded := make(map[string]struct{}, len(added))
	for _, id := range added {
		inAdded[id] = struct{}{}
	}
	inRemoved := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		inRemoved[id] = struct{}{}
	}

	keptAdded := make([]string, 0, len(added))
	for _, id := range added {
		if _, ok := inRemoved[id]; !ok {
			keptAdded = append(keptAdded, id)
		}
	}
	keptRemoved := make([]string, 0, len(removed))
	for _, id := range removed {
		if _, ok := inAdded[id]; !ok {
			keptRemoved = append(keptRemoved, id)
		}
	}
	return keptAdded, keptRemoved
}

func cancelCommonIdpGroups(added, removed []entity.IdpGroup) ([]entity.IdpGroup, []entity.IdpGroup) {
	key := func(g entity.IdpGroup) string { return g.IdpID + "\x00" + g.GroupID }

	inAdded := make(map[string]struct{}, len(added))
	for _, g := range added {
		inAdded[key(g)] = struct{}{}
	}
	inRemoved := make(map[string]struct{}, len(removed))
	for _, g := range removed {
		inRemoved[key(g)] = struct{}{}
	}

	keptAdded := make([]entity.IdpGroup, 0, len(added))
	for _, g := range added {
		if _, ok := inRemoved[key(g)]; !ok {
			keptAdded = append(keptAdded, g)
		}
	}
	keptRemoved := make([]entity.IdpGroup, 0, len(removed))
	for _, g := range removed {
		if _, ok := inAdded[key(g)]; !ok {
			keptRemoved = append(keptRemoved, g)
		}
	}
	return keptAdded, keptRemoved
}

func cancelCommonPermissions(added, removed []entity.Permission) ([]entity.Permission, []entity.Permission) {
	inAdded := make(map[string]struct{}, len(added))
	for _, p := range added {
		inAdded[p.Name] = struct{}{}
	}
	inRemoved := make(map[string]struct{}, len(removed))
	for _, p := range removed {
		inRemoved[p.Name] = struct{}{}
	}

	keptAdded := make([]entity.Permission, 0, len(added))
	for _, p := range added {
		if _, ok := inRemoved[p.Name]; !ok {
			keptAdded = append(keptAdded, p)
		}
	}
	keptRemoved := make([]entity.Permission, 0, len(removed))
	for _, p := range removed {
		if _, ok := inAdded[p.Name]; !ok {
			keptRemoved = append(keptRemoved, p)
		}
	}
	return keptAdded, keptRemoved
}
