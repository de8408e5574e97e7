package interfaces

import "context"

// CacheInvalidator clears dependent authorization caches. Invalidation
// runs synchronously after a successful commit, never before; failures
// are logged by the caller and not propagated.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, tenantDomain, userKey string) error
	InvalidateTenant(ctx context.Context, tenantDomain string) error
}
