package admin

import (
	"strings"

	handlershared "github.com/snipero7/qr24-sub000/internal/http/handlers/shared"
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

func debtFilter(c *gin.Context) repository.DebtListFilter {
	page, pageSize := handlershared.ReadPagination(c)
	return repository.DebtListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Search:   strings.TrimSpace(c.Query("search")),
	}
}

// GetAdminDebts 欠款列表
func (h *Handler) GetAdminDebts(c *gin.Context) {
	filter := debtFilter(c)
	debts, total, err := h.DebtService.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPage(c, debts, response.NewPagination(filter.Page, filter.PageSize, total))
}

// GetAdminDebtSummary 欠款汇总
func (h *Handler) GetAdminDebtSummary(c *gin.Context) {
	summary, err := h.DebtService.Summary()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, summary)
}

// GetAdminDebt 欠款详情（含收款记录）
func (h *Handler) GetAdminDebt(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.DebtService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// CreateAdminDebt 新建欠款
func (h *Handler) CreateAdminDebt(c *gin.Context) {
	var input service.CreateDebtInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	detail, err := h.DebtService.Create(input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// UpdateAdminDebt 编辑欠款，金额变化后重新计算状态
func (h *Handler) UpdateAdminDebt(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input service.UpdateDebtInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	detail, err := h.DebtService.Update(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// AddDebtPaymentRequest 登记收款
type AddDebtPaymentRequest struct {
	Amount models.Money `json:"amount"`
}

// AddAdminDebtPayment 登记一笔收款
func (h *Handler) AddAdminDebtPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AddDebtPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	detail, err := h.DebtService.AddPayment(id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// DeleteAdminDebt 删除欠款及其收款记录
func (h *Handler) DeleteAdminDebt(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.DebtService.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}
