package interfaces

import (
	"context"

	"github.com/gameplatform/role-service/internal/domain/entity"
)

// ScopeCatalog exposes the API scopes registered for a tenant. Role
// permissions for ORGANIZATION-audience roles must be drawn from this
// set.
type ScopeCatalog interface {
	ScopesForTenant(ctx context.Context, tenantDomain string) ([]string, error)
}

// IdpGroupCatalog exposes the group configuration of an identity
// provider. GroupsForIdp fails with a DomainError carrying
// CodeIdpNotFound when the provider itself is unknown.
type IdpGroupCatalog interface {
	GroupsForIdp(ctx context.Context, idpID, tenantDomain string) ([]entity.IdpGroup, error)
}
