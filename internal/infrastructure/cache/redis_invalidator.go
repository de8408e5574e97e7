package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/interfaces"
	"github.com/gameplatform/role-service/internal/utils/metrics"
)

// RedisInvalidator clears per-user and per-tenant authorization cache
// entries. Keys follow "userroles:<tenant>:<user>".
type RedisInvalidator struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisInvalidator creates a new instance of RedisInvalidator.
func NewRedisInvalidator(client *redis.Client, logger *zap.Logger) *RedisInvalidator {
	return &RedisInvalidator{client: client, logger: logger}
}

func userRolesKey(tenantDomain, userKey string) string {
	return fmt.Sprintf("userroles:%s:%s", tenantDomain, userKey)
}

// InvalidateUser drops the cached authorization entry of one user.
func (c *RedisInvalidator) InvalidateUser(ctx context.Context, tenantDomain, userKey string) error {
	key := userRolesKey(tenantDomain, userKey)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Failed to delete user cache entry", zap.String("key", key), zap.Error(err))
		metrics.CacheInvalidationsTotal.WithLabelValues("user", "failure").Inc()
		return err
	}
	metrics.CacheInvalidationsTotal.WithLabelValues("user", "success").Inc()
	return nil
}

// InvalidateTenant drops every cached authorization entry of the
// tenant. The keyspace is walked with SCAN so a large tenant does not
// block the server the way KEYS would.
func (c *RedisInvalidator) InvalidateTenant(ctx context.Context, tenantDomain string) error {
	pattern := fmt.Sprintf("userroles:%s:*", tenantDomain)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 500 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Error("Failed to delete tenant cache entries", zap.String("tenant", tenantDomain), zap.Error(err))
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Error("Failed to scan tenant cache entries", zap.String("tenant", tenantDomain), zap.Error(err))
		return err
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Error("Failed to delete tenant cache entries", zap.String("tenant", tenantDomain), zap.Error(err))
			metrics.CacheInvalidationsTotal.WithLabelValues("tenant", "failure").Inc()
			return err
		}
	}
	metrics.CacheInvalidationsTotal.WithLabelValues("tenant", "success").Inc()
	return nil
}

var _ interfaces.CacheInvalidator = (*RedisInvalidator)(nil)
