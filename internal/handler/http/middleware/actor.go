package middleware

import (
	"github.com/gameplatform/role-service/internal/domain/principal"
	"github.com/gin-gonic/gin"
)

const (
	// ActorIDHeader and ActorUsernameHeader are set by the platform
	// gateway after authentication.
	ActorIDHeader       = "X-Actor-Id"
	ActorUsernameHeader = "X-Actor-Username"

	// TenantHeader carries the tenant domain the request operates on.
	TenantHeader = "X-Tenant-Domain"

	GinContextTenantKey = "tenantDomain"
)

// ActorMiddleware copies the authenticated actor from the gateway
// headers into the request context so the service layer can attribute
// mutations. Requests without actor headers proceed unattributed.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(ActorIDHeader)
		username := c.GetHeader(ActorUsernameHeader)
		if id != "" || username != "" {
			ctx := principal.WithActor(c.Request.Context(), principal.Actor{
				ID:       id,
				Username: username,
			})
			c.Request = c.Request.WithContext(ctx)
		}
		if tenant := c.GetHeader(TenantHeader); tenant != "" {
			c.Set(GinContextTenantKey, tenant)
		}
		c.Next()
	}
}
