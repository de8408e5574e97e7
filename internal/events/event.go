package events

import (
	"context"
)

// Operation identifies a role directory mutation.
type Operation string

const (
	// OpAddRole - role creation
	OpAddRole Operation = "role.create"
	// OpDeleteRole - role deletion
	OpDeleteRole Operation = "role.delete"
	// OpUpdateRoleName - role rename
	OpUpdateRoleName Operation = "role.name_update"
	// OpUpdateUserList - user membership update
	OpUpdateUserList Operation = "role.user_list_update"
	// OpUpdateGroupList - group membership update
	OpUpdateGroupList Operation = "role.group_list_update"
	// OpUpdateIdpGroupList - identity-provider group update
	OpUpdateIdpGroupList Operation = "role.idp_group_list_update"
	// OpUpdatePermissionList - permission grant update
	OpUpdatePermissionList Operation = "role.permission_list_update"
)

// RoleEvent carries the facts of one role directory operation through
// the pre/post lifecycle.
type RoleEvent struct {
	Operation    Operation              `json:"operation"`
	RoleID       string                 `json:"role_id,omitempty"`
	RoleName     string                 `json:"role_name,omitempty"`
	TenantDomain string                 `json:"tenant_domain"`
	Initiator    string                 `json:"initiator,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// PreHook runs before the mutation. A non-nil error vetoes the
// operation; nothing has been persisted at that point.
type PreHook interface {
	HandlePre(ctx context.Context, event RoleEvent) error
}

// PostPublisher runs after a successful commit. Errors are logged by
// the dispatcher and never propagated.
type PostPublisher interface {
	HandlePost(ctx context.Context, event RoleEvent) error
}
