package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/repository"
	"github.com/gameplatform/role-service/internal/handler/http/middleware"
	"github.com/gameplatform/role-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleHandler exposes the role directory over HTTP.
type RoleHandler struct {
	roles  *service.RoleDirectoryService
	logger *zap.Logger
}

// NewRoleHandler creates a new instance of RoleHandler.
func NewRoleHandler(roles *service.RoleDirectoryService, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{
		roles:  roles,
		logger: logger,
	}
}

type audiencePayload struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

type createRoleRequest struct {
	Name        string           `json:"name" binding:"required"`
	Audience    *audiencePayload `json:"audience,omitempty"`
	Users       []string         `json:"users,omitempty"`
	Groups      []string         `json:"groups,omitempty"`
	Permissions []string         `json:"permissions,omitempty"`
}

type renameRoleRequest struct {
	Name string `json:"name" binding:"required"`
}

type updateMembersRequest struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

type idpGroupPayload struct {
	IdpID   string `json:"idp_id" binding:"required"`
	GroupID string `json:"group_id" binding:"required"`
}

type updateIdpGroupsRequest struct {
	Added   []idpGroupPayload `json:"added,omitempty"`
	Removed []idpGroupPayload `json:"removed,omitempty"`
}

type updatePermissionsRequest struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

type roleBasicResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Audience audiencePayload `json:"audience"`
}

type roleListResponse struct {
	Roles []roleBasicResponse `json:"roles"`
	Total int                 `json:"total"`
}

type memberPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type idpGroupResponse struct {
	IdpID     string `json:"idp_id"`
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`
}

type permissionResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

type roleResponse struct {
	ID                     string               `json:"id"`
	Name                   string               `json:"name"`
	TenantDomain           string               `json:"tenant_domain"`
	Audience               audiencePayload      `json:"audience"`
	AudienceName           string               `json:"audience_name,omitempty"`
	Users                  []memberPayload      `json:"users,omitempty"`
	Groups                 []memberPayload      `json:"groups,omitempty"`
	IdpGroups              []idpGroupResponse   `json:"idp_groups,omitempty"`
	Permissions            []permissionResponse `json:"permissions,omitempty"`
	AssociatedApplications []memberPayload      `json:"associated_applications,omitempty"`
	ImplicitAllUsers       bool                 `json:"implicit_all_users,omitempty"`
	CreatedAt              time.Time            `json:"created_at"`
	UpdatedAt              time.Time            `json:"updated_at"`
}

func toRoleResponse(role *entity.Role) roleResponse {
	resp := roleResponse{
		ID:           role.ID,
		Name:         role.Name,
		TenantDomain: role.TenantDomain,
		Audience: audiencePayload{
			Type:  role.Audience.Kind,
			Value: role.Audience.ID,
		},
		AudienceName:     role.Audience.Name,
		ImplicitAllUsers: role.ImplicitAllUsers,
		CreatedAt:        role.CreatedAt,
		UpdatedAt:        role.UpdatedAt,
	}
	for _, u := range role.Users {
		resp.Users = append(resp.Users, memberPayload{ID: u.ID, Name: u.Name})
	}
	for _, g := range role.Groups {
		resp.Groups = append(resp.Groups, memberPayload{ID: g.ID, Name: g.Name})
	}
	for _, g := range role.IdpGroups {
		resp.IdpGroups = append(resp.IdpGroups, idpGroupResponse{IdpID: g.IdpID, GroupID: g.GroupID, GroupName: g.GroupName})
	}
	for _, p := range role.Permissions {
		resp.Permissions = append(resp.Permissions, permissionResponse{Name: p.Name, DisplayName: p.DisplayName})
	}
	for _, a := range role.AssociatedApplications {
		resp.AssociatedApplications = append(resp.AssociatedApplications, memberPayload{ID: a.ID, Name: a.Name})
	}
	return resp
}

// CreateRole handles POST /roles.
func (h *RoleHandler) CreateRole(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest, "invalid request body"), h.logger)
		return
	}

	addReq := repository.AddRoleRequest{
		Name:         req.Name,
		UserIDs:      req.Users,
		GroupIDs:     req.Groups,
		Permissions:  toPermissions(req.Permissions),
		TenantDomain: tenant,
	}
	if req.Audience != nil {
		addReq.Audience = req.Audience.Type
		addReq.AudienceID = req.Audience.Value
	}

	info, err := h.roles.AddRole(c.Request.Context(), addReq)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusCreated, toBasicResponse(info))
}

// GetRoles handles GET /roles.
func (h *RoleHandler) GetRoles(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	query := repository.RoleQuery{
		Filter:    c.Query("filter"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidLimit, "limit must be an integer"), h.logger)
			return
		}
		query.Limit = &limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidOffset, "offset must be an integer"), h.logger)
			return
		}
		query.Offset = &offset
	}

	roles, err := h.roles.GetRoles(c.Request.Context(), query, tenant)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	total, err := h.roles.GetRolesCount(c.Request.Context(), tenant)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	resp := roleListResponse{Roles: make([]roleBasicResponse, 0, len(roles)), Total: total}
	for _, r := range roles {
		resp.Roles = append(resp.Roles, toBasicResponse(r))
	}
	RespondWithData(c, http.StatusOK, resp)
}

// GetRole handles GET /roles/:id.
func (h *RoleHandler) GetRole(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	var (
		role *entity.Role
		err  error
	)
	if c.Query("excludeUsers") == "true" {
		role, err = h.roles.GetRoleWithoutUsers(c.Request.Context(), c.Param("id"), tenant)
	} else {
		role, err = h.roles.GetRole(c.Request.Context(), c.Param("id"), tenant)
	}
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, toRoleResponse(role))
}

// RenameRole handles PATCH /roles/:id.
func (h *RoleHandler) RenameRole(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	var req renameRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest, "invalid request body"), h.logger)
		return
	}

	if err := h.roles.UpdateRoleName(c.Request.Context(), c.Param("id"), req.Name, tenant); err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	info, err := h.roles.GetRoleBasicInfo(c.Request.Context(), c.Param("id"), tenant)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, toBasicResponse(info))
}

// DeleteRole handles DELETE /roles/:id.
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	if err := h.roles.DeleteRole(c.Request.Context(), c.Param("id"), tenant); err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRoleUsers handles GET /roles/:id/users.
func (h *RoleHandler) GetRoleUsers(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	users, implicitAll, err := h.roles.GetUserListOfRole(c.Request.Context(), c.Param("id"), tenant)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	payload := make([]memberPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, memberPayload{ID: u.ID, Name: u.Name})
	}
	RespondWithData(c, http.StatusOK, gin.H{"users": payload, "implicit_all_users": implicitAll})
}

// UpdateRoleUsers handles PUT /roles/:id/users.
func (h *RoleHandler) UpdateRoleUsers(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req updateMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest, "invalid request body"), h.logger)
		return
	}
	if err := h.roles.UpdateUserListOfRole(c.Request.Context(), c.Param("id"), req.Added, req.Removed, tenant); err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRoleGroups handles GET /roles/:id/groups.
func (h *RoleHandler) GetRoleGroups(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	groups, err := h.roles.GetGroupListOfRole(c.Request.Context(), c.Param("id"), tenant)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	payload := make([]memberPayload, 0, len(groups))
	for _, g := range groups {
		payload = append(payload, memberPayload{ID: g.ID, Name: g.Name})
	}
	RespondWithData(c, http.StatusOK, gin.H{"groups": payload})
}

// UpdateRoleGroups handles PUT /roles/:id/groups.
func (h *RoleHandler) UpdateRoleGroups(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req updateMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest, "invalid request body"), h.logger)
		return
	}
	if err := h.roles.UpdateGroupListOfRole(c.Request.Context(), c.Param("id"), req.Added, req.Removed, tenant); err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRoleIdpGroups handles GET /roles/:id/idp-groups.
func (h *RoleHandler) GetRoleIdpGroups(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	groups, err := h.roles.GetIdpGroupListOfRole(c.Request.Context(), c.Param("id"), tenant)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	payload := make([]idpGroupResponse, 0, len(groups))
	for _, g := range groups {
		payload = append(payload, idpGroupResponse{IdpID: g.IdpID, GroupID: g.GroupID, GroupName: g.GroupName})
	}
	RespondWithData(c, http.StatusOK, gin.H{"idp_groups": payload})
}

// UpdateRoleIdpGroups handles PUT /roles/:id/idp-groups.
func (h *RoleHandler) UpdateRoleIdpGroups(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req updateIdpGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest, "invalid request body"), h.logger)
		return
	}
	err := h.roles.UpdateIdpGroupListOfRole(c.Request.Context(), c.Param("id"),
		toIdpGroups(req.Added), toIdpGroups(req.Removed), tenant)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRolePermissions handles GET /roles/:id/permissions.
func (h *RoleHandler) GetRolePermissions(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	permissions, err := h.roles.GetPermissionListOfRole(c.Request.Context(), c.Param("id"), tenant)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	payload := make([]permissionResponse, 0, len(permissions))
	for _, p := range permissions {
		payload = append(payload, permissionResponse{Name: p.Name, DisplayName: p.DisplayName})
	}
	RespondWithData(c, http.StatusOK, gin.H{"permissions": payload})
}

// UpdateRolePermissions handles PUT /roles/:id/permissions.
func (h *RoleHandler) UpdateRolePermissions(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req updatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest, "invalid request body"), h.logger)
		return
	}
	err := h.roles.UpdatePermissionListOfRole(c.Request.Context(), c.Param("id"),
		toPermissions(req.Added), toPermissions(req.Removed), tenant)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

// tenant extracts the tenant domain of the request, responding with an
// error when it is absent.
func (h *RoleHandler) tenant(c *gin.Context) (string, bool) {
	if v, exists := c.Get(middleware.GinContextTenantKey); exists {
		if tenant, ok := v.(string); ok && tenant != "" {
			return tenant, true
		}
	}
	if tenant := c.Query("tenant"); tenant != "" {
		return tenant, true
	}
	RespondWithError(c, domainErrors.NewClientError(domainErrors.CodeInvalidRequest, "tenant domain is required"), h.logger)
	return "", false
}

func toBasicResponse(info *entity.RoleBasicInfo) roleBasicResponse {
	return roleBasicResponse{
		ID:   info.ID,
		Name: info.Name,
		Audience: audiencePayload{
			Type:  info.Audience.Kind,
			Value: info.Audience.ID,
		},
	}
}

func toIdpGroups(payload []idpGroupPayload) []entity.IdpGroup {
	groups := make([]entity.IdpGroup, 0, len(payload))
	for _, g := range payload {
		groups = append(groups, entity.IdpGroup{IdpID: g.IdpID, GroupID: g.GroupID})
	}
	return groups
}

func toPermissions(names []string) []entity.Permission {
	permissions := make([]entity.Permission, 0, len(names))
	for _, name := range names {
		permissions = append(permissions, entity.Permission{Name: name})
	}
	return permissions
}
