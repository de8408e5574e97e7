package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/principal"
	"github.com/gameplatform/role-service/internal/domain/repository"
	"github.com/gameplatform/role-service/internal/events"
	"github.com/gameplatform/role-service/internal/handler/http/middleware"
	"github.com/gameplatform/role-service/internal/service"
)

type handlerMockStore struct {
	mock.Mock
	repository.RoleStore
}

func (m *handlerMockStore) AddRole(ctx context.Context, req repository.AddRoleRequest) (*entity.RoleBasicInfo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RoleBasicInfo), args.Error(1)
}

func (m *handlerMockStore) GetRoles(ctx context.Context, q repository.RoleQuery, tenantDomain string) ([]*entity.RoleBasicInfo, error) {
	args := m.Called(ctx, q, tenantDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.RoleBasicInfo), args.Error(1)
}

func (m *handlerMockStore) GetRolesCount(ctx context.Context, tenantDomain string) (int, error) {
	args := m.Called(ctx, tenantDomain)
	return args.Int(0), args.Error(1)
}

func (m *handlerMockStore) GetRole(ctx context.Context, roleID, tenantDomain string) (*entity.Role, error) {
	args := m.Called(ctx, roleID, tenantDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Role), args.Error(1)
}

func (m *handlerMockStore) DeleteRole(ctx context.Context, roleID, tenantDomain string) error {
	args := m.Called(ctx, roleID, tenantDomain)
	return args.Error(0)
}

type handlerMockAudit struct {
	mock.Mock
}

func (m *handlerMockAudit) Create(ctx context.Context, logEntry *entity.AuditLog) error {
	m.Called(ctx, logEntry)
	return nil
}

func (m *handlerMockAudit) FindByID(ctx context.Context, id int64) (*entity.AuditLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AuditLog), args.Error(1)
}

func (m *handlerMockAudit) List(ctx context.Context, params repository.ListAuditLogParams) ([]*entity.AuditLog, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entity.AuditLog), args.Int(1), args.Error(2)
}

func newHandlerTestRouter(store *handlerMockStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	audit := new(handlerMockAudit)
	audit.On("Create", mock.Anything, mock.Anything).Maybe().Return(nil)
	svc := service.NewRoleDirectoryService(store, events.NewDispatcher(zap.NewNop()), audit, zap.NewNop(), service.RoleDirectorySettings{})
	handler := NewRoleHandler(svc, zap.NewNop())

	router := gin.New()
	router.Use(middleware.ActorMiddleware())
	router.POST("/api/v1/roles", handler.CreateRole)
	router.GET("/api/v1/roles", handler.GetRoles)
	router.GET("/api/v1/roles/:id", handler.GetRole)
	router.DELETE("/api/v1/roles/:id", handler.DeleteRole)
	return router
}

func TestCreateRole_RequiresTenant(t *testing.T) {
	router := newHandlerTestRouter(new(handlerMockStore))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/roles", strings.NewReader(`{"name":"editor"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domainErrors.CodeInvalidRequest)
}

func TestCreateRole_Success(t *testing.T) {
	store := new(handlerMockStore)
	store.On("AddRole", mock.Anything, mock.MatchedBy(func(r repository.AddRoleRequest) bool {
		return r.Name == "editor" && r.TenantDomain == "acme.com"
	})).Return(&entity.RoleBasicInfo{ID: "r-1", Name: "editor"}, nil)
	router := newHandlerTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/roles", strings.NewReader(`{"name":"editor"}`))
	req.Header.Set(middleware.TenantHeader, "acme.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"r-1"`)
	store.AssertExpectations(t)
}

func TestCreateRole_ConflictMapsTo409(t *testing.T) {
	store := new(handlerMockStore)
	store.On("AddRole", mock.Anything, mock.Anything).
		Return(nil, domainErrors.NewClientError(domainErrors.CodeRoleAlreadyExists, "role editor already exists"))
	router := newHandlerTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/roles", strings.NewReader(`{"name":"editor"}`))
	req.Header.Set(middleware.TenantHeader, "acme.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), domainErrors.CodeRoleAlreadyExists)
}

func TestGetRoles_InvalidLimitRejected(t *testing.T) {
	router := newHandlerTestRouter(new(handlerMockStore))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles?limit=abc", nil)
	req.Header.Set(middleware.TenantHeader, "acme.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domainErrors.CodeInvalidLimit)
}

func TestGetRole_NotFoundMapsTo404(t *testing.T) {
	store := new(handlerMockStore)
	store.On("GetRole", mock.Anything, "r-404", "acme.com").
		Return(nil, domainErrors.NewClientErrorf(domainErrors.CodeRoleNotFound, "role with id %q does not exist", "r-404"))
	router := newHandlerTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles/r-404", nil)
	req.Header.Set(middleware.TenantHeader, "acme.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), domainErrors.CodeRoleNotFound)
}

func TestDeleteRole_ForbiddenMapsTo403(t *testing.T) {
	store := new(handlerMockStore)
	store.On("DeleteRole", mock.Anything, "r-sys", "acme.com").
		Return(domainErrors.NewClientError(domainErrors.CodeOperationForbidden, "system roles cannot be deleted"))
	router := newHandlerTestRouter(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/roles/r-sys", nil)
	req.Header.Set(middleware.TenantHeader, "acme.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestActorMiddleware_PropagatesPrincipal(t *testing.T) {
	store := new(handlerMockStore)
	store.On("DeleteRole", mock.MatchedBy(func(ctx context.Context) bool {
		actor, ok := principal.FromContext(ctx)
		return ok && actor.ID == "u-1" && actor.Username == "alice"
	}), "r-1", "acme.com").Return(nil)
	router := newHandlerTestRouter(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/roles/r-1", nil)
	req.Header.Set(middleware.TenantHeader, "acme.com")
	req.Header.Set(middleware.ActorIDHeader, "u-1")
	req.Header.Set(middleware.ActorUsernameHeader, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	store.AssertExpectations(t)
}
