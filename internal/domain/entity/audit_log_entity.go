package entity

import (
	"encoding/json"
	"time"
)

// AuditLogStatus defines the status of an audited action.
type AuditLogStatus string

const (
	AuditLogStatusSuccess AuditLogStatus = "success"
	AuditLogStatusFailure AuditLogStatus = "failure"
)

// AuditLog represents one audited role-directory operation, mapping to
// the "role_audit_log" table. Initiator is the acting principal's ID,
// already masked when log masking is enabled.
type AuditLog struct {
	ID           int64           `db:"id"`
	Initiator    string          `db:"initiator"`
	Action       string          `db:"action"`
	TargetID     *string         `db:"target_id"` // Nullable
	TargetName   *string         `db:"target_name"`
	TenantDomain string          `db:"tenant_domain"`
	Status       AuditLogStatus  `db:"status"`
	Details      json.RawMessage `db:"details"` // Nullable JSONB
	CreatedAt    time.Time       `db:"created_at"`
}
