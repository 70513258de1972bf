package public

import (
	"strings"

	"github.com/snipero7/qr24-sub000/internal/http/response"

	"github.com/gin-gonic/gin"
)

// TrackOrder 公开追踪维修单；签名 t 不匹配时只返回基础信息
func (h *Handler) TrackOrder(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	tag := strings.TrimSpace(c.Query("t"))
	view, err := h.OrderService.Track(code, tag)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.Success(c, view)
}
