package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/principal"
	"github.com/gameplatform/role-service/internal/domain/repository"
	"github.com/gameplatform/role-service/internal/events"
	"github.com/gameplatform/role-service/internal/utils/metrics"
)

// RoleDirectorySettings carries the policy knobs of the orchestration
// layer.
type RoleDirectorySettings struct {
	// ReservedRolePrefix marks names reserved for internally managed
	// roles; callers may not create roles with it.
	ReservedRolePrefix string
	// EveryoneRoleName is the role every tenant user implicitly holds.
	// User reads of that role flag the stored membership as partial.
	EveryoneRoleName string
	// MaskingEnabled controls initiator masking in audit records.
	MaskingEnabled bool
}

// RoleDirectoryService is the orchestration facade of the role
// directory: request-shape validation, lifecycle hooks, audit records,
// and delegation to the store.
type RoleDirectoryService struct {
	store      repository.RoleStore
	dispatcher *events.Dispatcher
	auditRepo  repository.AuditLogRepository
	logger     *zap.Logger
	settings   RoleDirectorySettings
}

// NewRoleDirectoryService creates a new instance of RoleDirectoryService.
func NewRoleDirectoryService(
	store repository.RoleStore,
	dispatcher *events.Dispatcher,
	auditRepo repository.AuditLogRepository,
	logger *zap.Logger,
	settings RoleDirectorySettings,
) *RoleDirectoryService {
	return &RoleDirectoryService{
		store:      store,
		dispatcher: dispatcher,
		auditRepo:  auditRepo,
		logger:     logger,
		settings:   settings,
	}
}

// AddRole creates a role after name and audience validation.
func (s *RoleDirectoryService) AddRole(ctx context.Context, req repository.AddRoleRequest) (*entity.RoleBasicInfo, error) {
	defer s.observe("add_role", time.Now())
	if err := s.validateRoleName(req.Name); err != nil {
		return nil, err
	}
	if err := validateAudienceKind(req.Audience, req.AudienceID); err != nil {
		return nil, err
	}

	event := events.RoleEvent{
		Operation:    events.OpAddRole,
		RoleName:     req.Name,
		TenantDomain: req.TenantDomain,
		Initiator:    s.initiator(ctx),
	}
	if err := s.dispatcher.DispatchPre(ctx, event); err != nil {
		return nil, err
	}

	basic, err := s.store.AddRole(ctx, req)
	if err != nil {
		s.logger.Error("Failed to create role",
			zap.String("role_name", req.Name), zap.String("tenant", req.TenantDomain), zap.Error(err))
		s.recordAudit(ctx, "role_create", entity.AuditLogStatusFailure, nil, &req.Name, req.TenantDomain,
			map[string]interface{}{"error": err.Error()})
		metrics.RoleOperationsTotal.WithLabelValues("add_role", "failure").Inc()
		return nil, err
	}

	event.RoleID = basic.ID
	s.recordAudit(ctx, "role_create", entity.AuditLogStatusSuccess, &basic.ID, &basic.Name, req.TenantDomain, nil)
	s.dispatcher.DispatchPost(ctx, event)
	metrics.RoleOperationsTotal.WithLabelValues("add_role", "success").Inc()
	return basic, nil
}

func (s *RoleDirectoryService) GetRole(ctx context.Context, roleID, tenantDomain string) (*entity.Role, error) {
	role, err := s.store.GetRole(ctx, roleID, tenantDomain)
	if err != nil {
		s.logger.Debug("Failed to get role", zap.String("role_id", roleID), zap.Error(err))
		return nil, err
	}
	role.ImplicitAllUsers = s.isEveryoneRole(role.Name)
	return role, nil
}

func (s *RoleDirectoryService) GetRoleWithoutUsers(ctx context.Context, roleID, tenantDomain string) (*entity.Role, error) {
	role, err := s.store.GetRoleWithoutUsers(ctx, roleID, tenantDomain)
	if err != nil {
		return nil, err
	}
	role.ImplicitAllUsers = s.isEveryoneRole(role.Name)
	return role, nil
}

func (s *RoleDirectoryService) GetRoleBasicInfo(ctx context.Context, roleID, tenantDomain string) (*entity.RoleBasicInfo, error) {
	return s.store.GetRoleBasicInfo(ctx, roleID, tenantDomain)
}

func (s *RoleDirectoryService) GetRoles(ctx context.Context, q repository.RoleQuery, tenantDomain string) ([]*entity.RoleBasicInfo, error) {
	return s.store.GetRoles(ctx, q, tenantDomain)
}

func (s *RoleDirectoryService) GetRolesCount(ctx context.Context, tenantDomain string) (int, error) {
	return s.store.GetRolesCount(ctx, tenantDomain)
}

func (s *RoleDirectoryService) GetRoleNameByID(ctx context.Context, roleID, tenantDomain string) (string, error) {
	return s.store.GetRoleNameByID(ctx, roleID, tenantDomain)
}

func (s *RoleDirectoryService) IsExistingRoleID(ctx context.Context, roleID, tenantDomain string) (bool, error) {
	return s.store.IsExistingRoleID(ctx, roleID, tenantDomain)
}

func (s *RoleDirectoryService) IsExistingRoleName(ctx context.Context, name, audience, audienceID, tenantDomain string) (bool, error) {
	return s.store.IsExistingRoleName(ctx, name, audience, audienceID, tenantDomain)
}

func (s *RoleDirectoryService) GetSystemRoles() []string {
	return s.store.GetSystemRoles()
}

// UpdateRoleName renames a role. The new name obeys the same shape
// rules as creation.
func (s *RoleDirectoryService) UpdateRoleName(ctx context.Context, roleID, newName, tenantDomain string) error {
	defer s.observe("update_role_name", time.Now())
	if err := s.validateRoleName(newName); err != nil {
		return err
	}

	event := events.RoleEvent{
		Operation:    events.OpUpdateRoleName,
		RoleID:       roleID,
		RoleName:     newName,
		TenantDomain: tenantDomain,
		Initiator:    s.initiator(ctx),
	}
	if err := s.dispatcher.DispatchPre(ctx, event); err != nil {
		return err
	}

	if err := s.store.UpdateRoleName(ctx, roleID, newName, tenantDomain); err != nil {
		s.logger.Error("Failed to rename role",
			zap.String("role_id", roleID), zap.String("new_name", newName), zap.Error(err))
		s.recordAudit(ctx, "role_name_update", entity.AuditLogStatusFailure, &roleID, &newName, tenantDomain,
			map[string]interface{}{"error": err.Error()})
		metrics.RoleOperationsTotal.WithLabelValues("update_role_name", "failure").Inc()
		return err
	}

	s.recordAudit(ctx, "role_name_update", entity.AuditLogStatusSuccess, &roleID, &newName, tenantDomain, nil)
	s.dispatcher.DispatchPost(ctx, event)
	metrics.RoleOperationsTotal.WithLabelValues("update_role_name", "success").Inc()
	return nil
}

func (s *RoleDirectoryService) DeleteRole(ctx context.Context, roleID, tenantDomain string) error {
	defer s.observe("delete_role", time.Now())
	event := events.RoleEvent{
		Operation:    events.OpDeleteRole,
		RoleID:       roleID,
		TenantDomain: tenantDomain,
		Initiator:    s.initiator(ctx),
	}
	if err := s.dispatcher.DispatchPre(ctx, event); err != nil {
		return err
	}

	if err := s.store.DeleteRole(ctx, roleID, tenantDomain); err != nil {
		s.logger.Error("Failed to delete role", zap.String("role_id", roleID), zap.Error(err))
		s.recordAudit(ctx, "role_delete", entity.AuditLogStatusFailure, &roleID, nil, tenantDomain,
			map[string]interface{}{"error": err.Error()})
		metrics.RoleOperationsTotal.WithLabelValues("delete_role", "failure").Inc()
		return err
	}

	s.recordAudit(ctx, "role_delete", entity.AuditLogStatusSuccess, &roleID, nil, tenantDomain, nil)
	s.dispatcher.DispatchPost(ctx, event)
	metrics.RoleOperationsTotal.WithLabelValues("delete_role", "success").Inc()
	return nil
}

// validateRoleName enforces the shared naming rules: non-blank, no
// reserved prefix, no user-store domain separator.
func (s *RoleDirectoryService) validateRoleName(name string) error {
	if strings.TrimSpace(name) == "" {
		return domainErrors.NewClientError(domainErrors.CodeInvalidRequest, "role name cannot be empty")
	}
	if s.settings.ReservedRolePrefix != "" &&
		strings.HasPrefix(strings.ToLower(name), strings.ToLower(s.settings.ReservedRolePrefix)) {
		return domainErrors.NewClientErrorf(domainErrors.CodeInvalidRequest,
			"role name %q uses the reserved prefix %q", name, s.settings.ReservedRolePrefix)
	}
	if strings.Contains(name, entity.DomainSeparator) {
		return domainErrors.NewClientErrorf(domainErrors.CodeInvalidRequest,
			"role name %q contains the domain separator %q", name, entity.DomainSeparator)
	}
	return nil
}

// isEveryoneRole reports whether name is the implicit-membership role.
// The stored user list of that role understates actual membership,
// which reads surface as a flag rather than by enumerating the tenant.
func (s *RoleDirectoryService) isEveryoneRole(name string) bool {
	return s.settings.EveryoneRoleName != "" && strings.EqualFold(name, s.settings.EveryoneRoleName)
}

// validateAudienceKind checks audience legality without touching
// storage. An empty audience is legal and defaults downstream.
func validateAudienceKind(audience, audienceID string) error {
	switch strings.ToUpper(audience) {
	case "":
		return nil
	case entity.AudienceOrganization:
		return nil
	case entity.AudienceApplication:
		if audienceID == "" {
			return domainErrors.NewClientError(domainErrors.CodeInvalidRequest,
				"audience id is required for APPLICATION audience roles")
		}
		return nil
	default:
		return domainErrors.NewClientErrorf(domainErrors.CodeInvalidRequest,
			"invalid audience %q", audience)
	}
}

// initiator returns the acting principal's ID for audit purposes,
// masked when masking is enabled.
func (s *RoleDirectoryService) initiator(ctx context.Context) string {
	actor, ok := principal.FromContext(ctx)
	if !ok {
		return "system"
	}
	if s.settings.MaskingEnabled {
		return maskValue(actor.ID)
	}
	return actor.ID
}

// maskValue hides all but the first and last character.
func maskValue(value string) string {
	if len(value) <= 2 {
		return strings.Repeat("*", len(value))
	}
	return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
}

// recordAudit persists one audit record. The mutation outcome is
// already decided, so a failing audit write is logged and swallowed.
func (s *RoleDirectoryService) recordAudit(ctx context.Context, action string, status entity.AuditLogStatus, targetID, targetName *string, tenantDomain string, details map[string]interface{}) {
	var payload json.RawMessage
	if len(details) > 0 {
		data, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn("Failed to marshal audit details", zap.String("action", action), zap.Error(err))
		} else {
			payload = data
		}
	}
	entry := &entity.AuditLog{
		Initiator:    s.initiator(ctx),
		Action:       action,
		TargetID:     targetID,
		TargetName:   targetName,
		TenantDomain: tenantDomain,
		Status:       status,
		Details:      payload,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record audit entry",
			zap.String("action", action), zap.String("tenant", tenantDomain), zap.Error(err))
	}
}

func (s *RoleDirectoryService) observe(operation string, start time.Time) {
	metrics.RoleOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
