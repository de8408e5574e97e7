package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/repository"
)

type pgxAuditLogRepository struct {
	db *pgxpool.Pool
}

// NewPgxAuditLogRepository creates a new instance of pgxAuditLogRepository.
func NewPgxAuditLogRepository(db *pgxpool.Pool) repository.AuditLogRepository {
	return &pgxAuditLogRepository{db: db}
}

func (r *pgxAuditLogRepository) Create(ctx context.Context, logEntry *entity.AuditLog) error {
	// created_at has default, id is BIGSERIAL
	query := `
		INSERT INTO role_audit_log (initiator, action, target_id, target_name, tenant_domain, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.QueryRow(ctx, query,
		logEntry.Initiator, logEntry.Action, logEntry.TargetID, logEntry.TargetName,
		logEntry.TenantDomain, logEntry.Status, logEntry.Details, logEntry.CreatedAt,
	).Scan(&logEntry.ID)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

func (r *pgxAuditLogRepository) FindByID(ctx context.Context, id int64) (*entity.AuditLog, error) {
	query := `
		SELECT id, initiator, action, target_id, target_name, tenant_domain, status, details, created_at
		FROM role_audit_log
		WHERE id = $1`
	logEntry := &entity.AuditLog{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&logEntry.ID, &logEntry.Initiator, &logEntry.Action, &logEntry.TargetID, &logEntry.TargetName,
		&logEntry.TenantDomain, &logEntry.Status, &logEntry.Details, &logEntry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("audit log entry %d: %w", id, domainErrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find audit log entry by ID: %w", err)
	}
	return logEntry, nil
}

func (r *pgxAuditLogRepository) List(ctx context.Context, params repository.ListAuditLogParams) ([]*entity.AuditLog, int, error) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`SELECT id, initiator, action, target_id, target_name, tenant_domain, status, details, created_at FROM role_audit_log WHERE 1=1`)

	var countQuery strings.Builder
	countQuery.WriteString(`SELECT COUNT(*) FROM role_audit_log WHERE 1=1`)

	args := []interface{}{}
	argCount := 1

	addFilter := func(condition string, value interface{}) {
		baseQuery.WriteString(fmt.Sprintf(" AND %s $%d", condition, argCount))
		countQuery.WriteString(fmt.Sprintf(" AND %s $%d", condition, argCount))
		args = append(args, value)
		argCount++
	}

	if params.Initiator != nil && *params.Initiator != "" {
		addFilter("initiator =", *params.Initiator)
	}
	if params.Action != nil && *params.Action != "" {
		addFilter("action ILIKE", "%"+*params.Action+"%") // Case-insensitive partial match
	}
	if params.TargetID != nil && *params.TargetID != "" {
		addFilter("target_id =", *params.TargetID)
	}
	if params.TenantDomain != nil && *params.TenantDomain != "" {
		addFilter("tenant_domain =", *params.TenantDomain)
	}
	if params.Status != nil && *params.Status != "" {
		addFilter("status =", *params.Status)
	}
	if params.DateFrom != nil {
		addFilter("created_at >=", *params.DateFrom)
	}
	if params.DateTo != nil {
		addFilter("created_at <=", *params.DateTo)
	}

	// Get total count
	var total int
	err := r.db.QueryRow(ctx, countQuery.String(), args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	if total == 0 {
		return []*entity.AuditLog{}, 0, nil
	}

	baseQuery.WriteString(" ORDER BY created_at DESC")

	if params.PerPage > 0 {
		baseQuery.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, params.PerPage)
		argCount++
		if params.Page > 0 {
			offset := (params.Page - 1) * params.PerPage
			baseQuery.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
			args = append(args, offset)
			argCount++
		}
	}

	rows, err := r.db.Query(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*entity.AuditLog
	for rows.Next() {
		logEntry := &entity.AuditLog{}
		if err := rows.Scan(
			&logEntry.ID, &logEntry.Initiator, &logEntry.Action, &logEntry.TargetID, &logEntry.TargetName,
			&logEntry.TenantDomain, &logEntry.Status, &logEntry.Details, &logEntry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log entry during list: %w", err)
		}
		logs = append(logs, logEntry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error after iterating audit log list: %w", err)
	}

	return logs, total, nil
}

var _ repository.AuditLogRepository = (*pgxAuditLogRepository)(nil)
