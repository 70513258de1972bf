package admin

import (
	"strconv"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/constants"
	handlershared "github.com/snipero7/qr24-sub000/internal/http/handlers/shared"
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/repository"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) orderFilter(c *gin.Context) (repository.OrderListFilter, error) {
	page, pageSize := handlershared.ReadPagination(c)
	from, to, err := handlershared.ParseDateRange(c.Query("created_from"), c.Query("created_to"), h.Location)
	if err != nil {
		return repository.OrderListFilter{}, err
	}
	filter := repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Code:        strings.TrimSpace(c.Query("code")),
		Phone:       strings.TrimSpace(c.Query("phone")),
		Search:      strings.TrimSpace(c.Query("search")),
		CreatedFrom: from,
		CreatedTo:   to,
	}
	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		id, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil {
			return repository.OrderListFilter{}, &service.ValidationError{Fields: []service.FieldError{{Field: "customer_id", Rule: "uint", Message: "must be a positive integer"}}}
		}
		filter.CustomerID = uint(id)
	}
	return filter, nil
}

// GetAdminOrders 维修单列表
func (h *Handler) GetAdminOrders(c *gin.Context) {
	filter, err := h.orderFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	orders, total, err := h.OrderService.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(filter.Page, filter.PageSize, total))
}

// GetAdminOrder 维修单详情（含状态记录）
func (h *Handler) GetAdminOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.OrderService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// CreateAdminOrder 新建维修单
func (h *Handler) CreateAdminOrder(c *gin.Context) {
	var input service.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	detail, err := h.OrderService.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// UpdateAdminOrder 编辑维修单（交付后锁定）
func (h *Handler) UpdateAdminOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input service.UpdateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	detail, err := h.OrderService.Update(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// UpdateAdminOrderStatus 变更维修单状态
func (h *Handler) UpdateAdminOrderStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input service.SetStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	input.Status = strings.ToUpper(strings.TrimSpace(input.Status))
	detail, err := h.OrderService.SetStatus(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// DeliverAdminOrder 交付并收款；回执失败不影响交付结果
func (h *Handler) DeliverAdminOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input service.DeliverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	result, err := h.DeliveryService.Deliver(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	data := gin.H{
		"order":          result.Order,
		"receipt_url":    result.ReceiptURL,
		"receipt_queued": result.ReceiptQueued,
	}
	if result.ReceiptErr != nil {
		requestLog(c).Warnw("admin_order_receipt_failed", "order_id", id, "error", result.ReceiptErr)
		data["receipt_error"] = service.ErrorCode(result.ReceiptErr)
		response.SuccessWithMsg(c, "delivered, receipt generation failed", data)
		return
	}
	response.Success(c, data)
}

// RegenerateAdminOrderReceipt 重新生成回执
func (h *Handler) RegenerateAdminOrderReceipt(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.DeliveryService.RegenerateReceipt(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// GetAdminOrderWhatsAppLink 生成 wa.me 通知链接
func (h *Handler) GetAdminOrderWhatsAppLink(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	event := strings.TrimSpace(c.DefaultQuery("event", constants.NotifyEventStatusChanged))
	msg, err := h.NotificationService.Build(id, event)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, msg)
}

// DeleteAdminOrder 删除维修单
func (h *Handler) DeleteAdminOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.OrderService.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}
