package repository

import (
	"context"

	"github.com/gameplatform/role-service/internal/domain/entity"
)

// AddRoleRequest carries everything needed to create a role. An empty
// Audience defaults to ORGANIZATION scoped to the tenant's own
// organization.
type AddRoleRequest struct {
	Name         string
	UserIDs      []string
	GroupIDs     []string
	Permissions  []entity.Permission
	Audience     string
	AudienceID   string
	TenantDomain string
}

// RoleQuery is the shape of a role list query. Limit and Offset are
// optional; Offset is 1-based as received from the caller. SortBy and
// SortOrder are accepted but unsupported, any non-blank value is
// rejected rather than silently ignored.
type RoleQuery struct {
	Filter    string
	Limit     *int
	Offset    *int
	SortBy    string
	SortOrder string
}

// RoleStore owns durable role records, their membership sets,
// permission sets, IDP-group associations, and shared-role delegation.
type RoleStore interface {
	// AddRole persists a role with its members and permissions as one
	// atomic unit and returns the basic info of the created role.
	AddRole(ctx context.Context, req AddRoleRequest) (*entity.RoleBasicInfo, error)

	// GetRole retrieves a full role record including users.
	GetRole(ctx context.Context, roleID, tenantDomain string) (*entity.Role, error)

	// GetRoleWithoutUsers retrieves a full role record minus the user list.
	GetRoleWithoutUsers(ctx context.Context, roleID, tenantDomain string) (*entity.Role, error)

	// GetRoleBasicInfo retrieves the id/name/audience projection.
	GetRoleBasicInfo(ctx context.Context, roleID, tenantDomain string) (*entity.RoleBasicInfo, error)

	// GetRoles lists roles matching the query, ordered by name.
	GetRoles(ctx context.Context, q RoleQuery, tenantDomain string) ([]*entity.RoleBasicInfo, error)

	// GetRolesCount returns the number of roles in the tenant.
	GetRolesCount(ctx context.Context, tenantDomain string) (int, error)

	// GetRoleNameByID resolves the current name of a role.
	GetRoleNameByID(ctx context.Context, roleID, tenantDomain string) (string, error)

	// UpdateRoleName renames a role in place, preserving its ID and all
	// associations.
	UpdateRoleName(ctx context.Context, roleID, newName, tenantDomain string) error

	// DeleteRole removes a role and all its associations as one unit.
	DeleteRole(ctx context.Context, roleID, tenantDomain string) error

	GetUserListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.UserBasicInfo, error)
	UpdateUserListOfRole(ctx context.Context, roleID string, addedUserIDs, removedUserIDs []string, tenantDomain string) error

	GetGroupListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.GroupBasicInfo, error)
	UpdateGroupListOfRole(ctx context.Context, roleID string, addedGroupIDs, removedGroupIDs []string, tenantDomain string) error

	GetIdpGroupListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.IdpGroup, error)
	UpdateIdpGroupListOfRole(ctx context.Context, roleID string, added, removed []entity.IdpGroup, tenantDomain string) error

	GetPermissionListOfRole(ctx context.Context, roleID, tenantDomain string) ([]entity.Permission, error)
	UpdatePermissionListOfRole(ctx context.Context, roleID string, added, removed []entity.Permission, tenantDomain string) error

	IsExistingRoleID(ctx context.Context, roleID, tenantDomain string) (bool, error)
	IsExistingRoleName(ctx context.Context, name, audience, audienceID, tenantDomain string) (bool, error)

	// GetSystemRoles returns the configured protected role names, empty
	// when the feature is disabled.
	GetSystemRoles() []string
}
