package interfaces

import (
	"context"
)

// IdentityResolver maps stable principal identifiers to their mutable,
// domain-qualified display names and back, scoped per tenant.
// Unresolvable entries are omitted from the result maps rather than
// failing the whole call.
type IdentityResolver interface {
	NamesByIDs(ctx context.Context, ids []string, tenantDomain string) (map[string]string, error)
	IDsByNames(ctx context.Context, names []string, tenantDomain string) (map[string]string, error)
	IDByName(ctx context.Context, name, tenantDomain string) (string, error)
	NameByID(ctx context.Context, id, tenantDomain string) (string, error)
}

// GroupResolver is the group counterpart of IdentityResolver.
type GroupResolver interface {
	NamesByIDs(ctx context.Context, ids []string, tenantDomain string) (map[string]string, error)
	IDsByNames(ctx context.Context, names []string, tenantDomain string) (map[string]string, error)
}
