package repository

import (
	"context"
	"time"

	"github.com/gameplatform/role-service/internal/domain/entity"
)

// ListAuditLogParams defines parameters for listing audit log entries.
type ListAuditLogParams struct {
	Page         int
	PerPage      int
	Initiator    *string                // Optional filter by initiator
	Action       *string                // Optional filter by action type
	TargetID     *string                // Optional filter by target role ID
	TenantDomain *string                // Optional filter by tenant
	Status       *entity.AuditLogStatus // Optional filter by status
	DateFrom     *time.Time             // Optional filter for entries created from this date
	DateTo       *time.Time             // Optional filter for entries created up to this date
}

// AuditLogRepository defines the interface for interacting with audit log data.
type AuditLogRepository interface {
	// Create persists a new audit log entry to the database.
	Create(ctx context.Context, logEntry *entity.AuditLog) error

	// FindByID retrieves an audit log entry by its unique ID (BIGSERIAL).
	FindByID(ctx context.Context, id int64) (*entity.AuditLog, error)

	// List retrieves audit log entries based on specified parameters.
	// Returns the matching entries and the total count of matching records.
	List(ctx context.Context, params ListAuditLogParams) ([]*entity.AuditLog, int, error)
}
