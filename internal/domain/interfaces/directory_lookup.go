package interfaces

import (
	"context"

	"github.com/gameplatform/role-service/internal/domain/entity"
)

// OrganizationResolver maps between a tenant domain and its
// organization id and display name.
type OrganizationResolver interface {
	OrganizationIDForTenant(ctx context.Context, tenantDomain string) (string, error)
	OrganizationName(ctx context.Context, orgID string) (string, error)
}

// ApplicationResolver resolves application display names and the
// applications associated with an organization role.
type ApplicationResolver interface {
	ApplicationName(ctx context.Context, appID, tenantDomain string) (string, error)
	AssociatedApplications(ctx context.Context, roleID, tenantDomain string) ([]entity.AssociatedApplication, error)
}

// TenantLookup resolves tenant-level facts the role directory needs.
type TenantLookup interface {
	// OwnerUsername returns the domain-qualified username of the tenant
	// owner.
	OwnerUsername(ctx context.Context, tenantDomain string) (string, error)
}
