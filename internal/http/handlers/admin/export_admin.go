package admin

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

func setCSVHeaders(c *gin.Context, name string, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	filename := fmt.Sprintf("%s-%s.csv", name, time.Now().In(loc).Format("20060102-1504"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Cache-Control", "no-store")
}

// exportFailed 尚未写出内容时返回 JSON 错误，否则只记录日志并中断
func exportFailed(c *gin.Context, event string, rows int, err error) {
	if !c.Writer.Written() {
		c.Writer.Header().Del("Content-Disposition")
		c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		respondError(c, err)
		return
	}
	requestLog(c).Errorw(event, "rows", rows, "error", err)
	_ = c.Error(err)
}

// ExportAdminOrders 导出维修单 CSV（沿用列表过滤条件）
func (h *Handler) ExportAdminOrders(c *gin.Context) {
	filter, err := h.orderFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	setCSVHeaders(c, "orders", h.Location)
	rows, err := h.ExportService.ExportOrders(c.Writer, filter)
	if err != nil {
		exportFailed(c, "admin_export_orders_failed", rows, err)
		return
	}
	requestLog(c).Infow("admin_export_orders", "rows", rows)
}

// ExportAdminDebts 导出欠款 CSV
func (h *Handler) ExportAdminDebts(c *gin.Context) {
	filter := debtFilter(c)
	setCSVHeaders(c, "debts", h.Location)
	rows, err := h.ExportService.ExportDebts(c.Writer, filter)
	if err != nil {
		exportFailed(c, "admin_export_debts_failed", rows, err)
		return
	}
	requestLog(c).Infow("admin_export_debts", "rows", rows)
}
