package admin

import (
	"strings"

	handlershared "github.com/snipero7/qr24-sub000/internal/http/handlers/shared"
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/repository"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminCustomers 客户列表
func (h *Handler) GetAdminCustomers(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	customers, total, err := h.CustomerService.List(repository.CustomerListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPage(c, customers, response.NewPagination(page, pageSize, total))
}

// GetAdminCustomer 客户详情
func (h *Handler) GetAdminCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.CustomerService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// UpsertAdminCustomer 按手机号新增或更新客户
func (h *Handler) UpsertAdminCustomer(c *gin.Context) {
	var input service.CustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	customer, err := h.CustomerService.Upsert(input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, customer)
}

// UpdateAdminCustomer 编辑客户
func (h *Handler) UpdateAdminCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input service.CustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	customer, err := h.CustomerService.Update(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, customer)
}
