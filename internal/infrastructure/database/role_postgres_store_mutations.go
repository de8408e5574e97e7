package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
)

// UpdateRoleName renames the role in place. The ID and every
// association stay attached to the renamed role.
func (s *pgxRoleStore) UpdateRoleName(ctx context.Context, roleID, newName, tenantDomain string) (err error) {
	defer func() { observeDB("update_role_name", err) }()
	row, err := s.fetchRoleRow(ctx, roleID, tenantDomain)
	if err != nil {
		return err
	}
	if s.isSystemRole(row.Name) {
		return domainErrors.NewClientErrorf(domainErrors.CodeOperationForbidden,
			"system role %q cannot be renamed", row.Name)
	}

	// A rename to a case variant of the same name is allowed; any other
	// collision inside the audience is a conflict.
	if !strings.EqualFold(row.Name, newName) {
		var exists bool
		err := s.db.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM roles
				WHERE lower(name) = lower($1) AND tenant_domain = $2 AND audience_ref_id = $3 AND id <> $4)`,
			newName, tenantDomain, row.AudienceRef, roleID).Scan(&exists)
		if err != nil {
			return domainErrors.NewServerError("failed to check role name collision", err)
		}
		if exists {
			return domainErrors.NewClientErrorf(domainErrors.CodeRoleAlreadyExists,
				"role %q already exists in the audience", newName)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domainErrors.NewServerError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	commandTag, err := tx.Exec(ctx,
		`UPDATE roles SET name = $2, updated_at = $3 WHERE id = $1 AND tenant_domain = $4`,
		roleID, newName, time.Now().UTC(), tenantDomain)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.NewClientErrorf(domainErrors.CodeRoleAlreadyExists,
				"role %q already exists in the audience", newName)
		}
		return domainErrors.NewServerError("failed to rename role", err)
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.NewClientErrorf(domainErrors.CodeRoleNotFound,
			"role with id %q does not exist", roleID)
	}
	if err := tx.Commit(ctx); err != nil {
		return domainErrors.NewServerError("failed to commit role rename", err)
	}

	s.invalidateTenantCache(ctx, tenantDomain)
	return nil
}

// DeleteRole removes the role and every association in one
// transaction. Membership, permission, IDP-group, and shared-role rows
// go with the role row via FK cascade; application links are dropped
// explicitly.
func (s *pgxRoleStore) DeleteRole(ctx context.Context, roleID, tenantDomain string) (err error) {
	defer func() { observeDB("delete_role", err) }()
	row, err := s.fetchRoleRow(ctx, roleID, tenantDomain)
	if err != nil {
		return err
	}
	if s.isSystemRole(row.Name) {
		return domainErrors.NewClientErrorf(domainErrors.CodeOperationForbidden,
			"system role %q cannot be deleted", row.Name)
	}
	if strings.EqualFold(row.Name, s.settings.EveryoneRoleName) {
		return domainErrors.NewClientErrorf(domainErrors.CodeOperationForbidden,
			"role %q cannot be deleted", row.Name)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domainErrors.NewServerError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_app_associations WHERE role_id = $1`, roleID); err != nil {
		return domainErrors.NewServerError("failed to delete role application links", err)
	}
	commandTag, err := tx.Exec(ctx,
		`DELETE FROM roles WHERE id = $1 AND tenant_domain = $2`, roleID, tenantDomain)
	if err != nil {
		return domainErrors.NewServerError("failed to delete role", err)
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.NewClientErrorf(domainErrors.CodeRoleNotFound,
			"role with id %q does not exist", roleID)
	}
	if err := tx.Commit(ctx); err != nil {
		return domainErrors.NewServerError("failed to commit role deletion", err)
	}

	s.invalidateTenantCache(ctx, tenantDomain)
	return nil
}
