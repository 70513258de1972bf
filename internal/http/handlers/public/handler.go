package public

import (
	handlershared "github.com/snipero7/qr24-sub000/internal/http/handlers/shared"
	"github.com/snipero7/qr24-sub000/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 公开接口处理器入口（订单追踪、验证码、公开配置）
type Handler struct {
	*provider.Container
}

// New 创建公开处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, err error) {
	handlershared.RespondError(c, err)
}
