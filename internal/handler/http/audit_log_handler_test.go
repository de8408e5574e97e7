package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/repository"
	"github.com/gameplatform/role-service/internal/handler/http/middleware"
)

func newAuditTestRouter(audit *handlerMockAudit) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAuditLogHandler(audit, zap.NewNop())

	router := gin.New()
	router.Use(middleware.ActorMiddleware())
	router.GET("/api/v1/audit-logs", handler.ListAuditLogs)
	router.GET("/api/v1/audit-logs/:id", handler.GetAuditLog)
	return router
}

func TestListAuditLogs_AppliesFilters(t *testing.T) {
	audit := new(handlerMockAudit)
	entries := []*entity.AuditLog{{
		ID:           7,
		Initiator:    "a***e",
		Action:       "role_delete",
		TenantDomain: "acme.com",
		Status:       entity.AuditLogStatusSuccess,
		CreatedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}}
	audit.On("List", mock.Anything, mock.MatchedBy(func(p repository.ListAuditLogParams) bool {
		return p.Page == 2 && p.PerPage == 10 &&
			p.Action != nil && *p.Action == "role_delete" &&
			p.TenantDomain != nil && *p.TenantDomain == "acme.com" &&
			p.Status != nil && *p.Status == entity.AuditLogStatusSuccess
	})).Return(entries, 11, nil)
	router := newAuditTestRouter(audit)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/audit-logs?page=2&per_page=10&action=role_delete&status=success", nil)
	req.Header.Set(middleware.TenantHeader, "acme.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"action":"role_delete"`)
	assert.Contains(t, rec.Body.String(), `"total_items":11`)
	assert.Contains(t, rec.Body.String(), `"total_pages":2`)
	audit.AssertExpectations(t)
}

func TestListAuditLogs_RejectsBadPage(t *testing.T) {
	router := newAuditTestRouter(new(handlerMockAudit))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs?page=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domainErrors.CodeInvalidRequest)
}

func TestListAuditLogs_RejectsBadTimestamp(t *testing.T) {
	router := newAuditTestRouter(new(handlerMockAudit))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs?from=yesterday", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domainErrors.CodeInvalidRequest)
}

func TestGetAuditLog_Success(t *testing.T) {
	audit := new(handlerMockAudit)
	audit.On("FindByID", mock.Anything, int64(42)).Return(&entity.AuditLog{
		ID:           42,
		Initiator:    "system",
		Action:       "role_create",
		TenantDomain: "acme.com",
		Status:       entity.AuditLogStatusSuccess,
	}, nil)
	router := newAuditTestRouter(audit)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":42`)
	audit.AssertExpectations(t)
}

func TestGetAuditLog_NotFoundMapsTo404(t *testing.T) {
	audit := new(handlerMockAudit)
	audit.On("FindByID", mock.Anything, int64(99)).
		Return(nil, fmt.Errorf("audit log entry %d: %w", 99, domainErrors.ErrNotFound))
	router := newAuditTestRouter(audit)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAuditLog_RejectsNonNumericID(t *testing.T) {
	router := newAuditTestRouter(new(handlerMockAudit))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs/latest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domainErrors.CodeInvalidRequest)
}
