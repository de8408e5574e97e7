package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gameplatform/role-service/internal/domain/repository"
	"github.com/gameplatform/role-service/internal/handler/http/middleware"
	"github.com/gameplatform/role-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter wires the role directory API plus the operational
// endpoints (health, readiness, metrics).
func SetupRouter(
	roleService *service.RoleDirectoryService,
	auditRepo repository.AuditLogRepository,
	dbPool *pgxpool.Pool,
	redisClient *redis.Client,
	environment string,
	logger *zap.Logger,
) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CorsMiddleware())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.ActorMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "SERVING"})
	})
	router.GET("/readiness", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Warn("Readiness check failed: database unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "reason": "database"})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.Warn("Readiness check failed: redis unreachable", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "reason": "redis"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "READY"})
	})

	roleHandler := NewRoleHandler(roleService, logger)

	v1 := router.Group("/api/v1")
	{
		roles := v1.Group("/roles")
		{
			roles.POST("", roleHandler.CreateRole)
			roles.GET("", roleHandler.GetRoles)
			roles.GET("/:id", roleHandler.GetRole)
			roles.PATCH("/:id", roleHandler.RenameRole)
			roles.DELETE("/:id", roleHandler.DeleteRole)

			roles.GET("/:id/users", roleHandler.GetRoleUsers)
			roles.PUT("/:id/users", roleHandler.UpdateRoleUsers)
			roles.GET("/:id/groups", roleHandler.GetRoleGroups)
			roles.PUT("/:id/groups", roleHandler.UpdateRoleGroups)
			roles.GET("/:id/idp-groups", roleHandler.GetRoleIdpGroups)
			roles.PUT("/:id/idp-groups", roleHandler.UpdateRoleIdpGroups)
			roles.GET("/:id/permissions", roleHandler.GetRolePermissions)
			roles.PUT("/:id/permissions", roleHandler.UpdateRolePermissions)
		}

		auditHandler := NewAuditLogHandler(auditRepo, logger)
		auditLogs := v1.Group("/audit-logs")
		{
			auditLogs.GET("", auditHandler.ListAuditLogs)
			auditLogs.GET("/:id", auditHandler.GetAuditLog)
		}
	}

	return router
}
