package shared

import (
	"strconv"

	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextKeyAdminID  = "admin_id"
	ContextKeyUsername = "username"
	ContextKeyIsSuper  = "is_super"
)

// GetAdminID 从上下文读取当前管理员 ID。
func GetAdminID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(ContextKeyAdminID)
	if !exists {
		RespondErrorWithMsg(c, response.CodeUnauthorized, service.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondErrorWithMsg(c, response.CodeBadRequest, service.CodeInvalidInput, "invalid admin id", nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondErrorWithMsg(c, response.CodeBadRequest, service.CodeInvalidInput, "invalid admin id", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondErrorWithMsg(c, response.CodeInternal, service.CodeServerError, "invalid admin id type", nil)
		return 0, false
	}
}

// ParseIDParam 解析路径中的 ID 参数，失败时直接写回 INVALID_INPUT。
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondErrorWithMsg(c, response.CodeBadRequest, service.CodeInvalidInput, "invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}

// PublicConfigCacheKey 公开配置缓存键，门店信息变更时清除
const PublicConfigCacheKey = "public:config"
