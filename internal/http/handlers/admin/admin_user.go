package admin

import (
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminUsers 后台账号列表
func (h *Handler) GetAdminUsers(c *gin.Context) {
	views, err := h.AdminUserService.List()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, views)
}

// GetAdminRoles 可分配的角色
func (h *Handler) GetAdminRoles(c *gin.Context) {
	roles, err := h.AdminUserService.ListRoles()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, roles)
}

// CreateAdminUser 创建后台账号
func (h *Handler) CreateAdminUser(c *gin.Context) {
	var input service.CreateAdminInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	view, err := h.AdminUserService.Create(input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, view)
}

// UpdateAdminUser 更新账号（改密、禁用后旧 Token 失效）
func (h *Handler) UpdateAdminUser(c *gin.Context) {
	actorID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input service.UpdateAdminInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	view, err := h.AdminUserService.Update(c.Request.Context(), actorID, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, view)
}

// DeleteAdminUser 删除账号
func (h *Handler) DeleteAdminUser(c *gin.Context) {
	actorID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.AdminUserService.Delete(c.Request.Context(), actorID, id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}
