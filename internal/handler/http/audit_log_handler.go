package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/repository"
	"github.com/gameplatform/role-service/internal/handler/http/middleware"
)

// AuditLogHandler exposes the audit trail of role directory mutations.
type AuditLogHandler struct {
	audit  repository.AuditLogRepository
	logger *zap.Logger
}

// NewAuditLogHandler creates a new instance of AuditLogHandler.
func NewAuditLogHandler(audit repository.AuditLogRepository, logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		audit:  audit,
		logger: logger,
	}
}

type auditLogResponse struct {
	ID           int64           `json:"id"`
	Initiator    string          `json:"initiator"`
	Action       string          `json:"action"`
	TargetID     *string         `json:"target_id,omitempty"`
	TargetName   *string         `json:"target_name,omitempty"`
	TenantDomain string          `json:"tenant_domain"`
	Status       string          `json:"status"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type listMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

type auditLogListResponse struct {
	Data []auditLogResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

func toAuditLogResponse(entry *entity.AuditLog) auditLogResponse {
	return auditLogResponse{
		ID:           entry.ID,
		Initiator:    entry.Initiator,
		Action:       entry.Action,
		TargetID:     entry.TargetID,
		TargetName:   entry.TargetName,
		TenantDomain: entry.TenantDomain,
		Status:       string(entry.Status),
		Details:      entry.Details,
		CreatedAt:    entry.CreatedAt,
	}
}

// ListAuditLogs handles GET /audit-logs. The tenant filter is optional
// so operators can inspect the full trail.
func (h *AuditLogHandler) ListAuditLogs(c *gin.Context) {
	page, ok := h.positiveIntQuery(c, "page", 1)
	if !ok {
		return
	}
	perPage, ok := h.positiveIntQuery(c, "per_page", 20)
	if !ok {
		return
	}

	params := repository.ListAuditLogParams{Page: page, PerPage: perPage}
	if v := c.Query("initiator"); v != "" {
		params.Initiator = &v
	}
	if v := c.Query("action"); v != "" {
		params.Action = &v
	}
	if v := c.Query("target_id"); v != "" {
		params.TargetID = &v
	}
	if v := optionalTenant(c); v != "" {
		params.TenantDomain = &v
	}
	if v := c.Query("status"); v != "" {
		status := entity.AuditLogStatus(v)
		if status != entity.AuditLogStatusSuccess && status != entity.AuditLogStatusFailure {
			RespondWithError(c, domainErrors.NewClientErrorf(domainErrors.CodeInvalidRequest,
				"invalid status %q", v), h.logger)
			return
		}
		params.Status = &status
	}
	if v := c.Query("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest,
				"from must be an RFC3339 timestamp"), h.logger)
			return
		}
		params.DateFrom = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest,
				"to must be an RFC3339 timestamp"), h.logger)
			return
		}
		params.DateTo = &to
	}

	entries, total, err := h.audit.List(c.Request.Context(), params)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	resp := auditLogListResponse{
		Data: make([]auditLogResponse, 0, len(entries)),
		Meta: listMeta{
			CurrentPage: page,
			PerPage:     perPage,
			TotalItems:  total,
			TotalPages:  (total + perPage - 1) / perPage,
		},
	}
	for _, entry := range entries {
		resp.Data = append(resp.Data, toAuditLogResponse(entry))
	}
	RespondWithData(c, http.StatusOK, resp)
}

// GetAuditLog handles GET /audit-logs/:id.
func (h *AuditLogHandler) GetAuditLog(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest,
			"audit log id must be an integer"), h.logger)
		return
	}
	entry, err := h.audit.FindByID(c.Request.Context(), id)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, toAuditLogResponse(entry))
}

func (h *AuditLogHandler) positiveIntQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		RespondWithError(c, domainErrors.NewClientErrorf(domainErrors.CodeInvalidRequest,
			"%s must be a positive integer", name), h.logger)
		return 0, false
	}
	return value, true
}

// optionalTenant resolves the tenant domain of the request without
// requiring one.
func optionalTenant(c *gin.Context) string {
	if v, exists := c.Get(middleware.GinContextTenantKey); exists {
		if tenant, ok := v.(string); ok && tenant != "" {
			return tenant
		}
	}
	return c.Query("tenant")
}
