package admin

import (
	"strings"

	handlershared "github.com/snipero7/qr24-sub000/internal/http/handlers/shared"
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetLoginLogs 后台登录日志
func (h *Handler) GetLoginLogs(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	from, to, err := handlershared.ParseDateRange(c.Query("created_from"), c.Query("created_to"), h.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, total, err := h.AuthService.ListLoginLogs(repository.LoginLogListFilter{
		Page:        page,
		PageSize:    pageSize,
		Username:    strings.ToLower(strings.TrimSpace(c.Query("username"))),
		Status:      strings.TrimSpace(c.Query("status")),
		ClientIP:    strings.TrimSpace(c.Query("client_ip")),
		CreatedFrom: from,
		CreatedTo:   to,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPage(c, logs, response.NewPagination(page, pageSize, total))
}
