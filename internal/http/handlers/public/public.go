package public

import (
	"time"

	"github.com/snipero7/qr24-sub000/internal/constants"
	handlershared "github.com/snipero7/qr24-sub000/internal/http/handlers/shared"
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

const publicConfigCacheTTL = 60 * time.Second

// PublicConfig 公开配置
type PublicConfig struct {
	Shop     PublicShop                  `json:"shop"`
	Captcha  service.CaptchaPublicConfig `json:"captcha"`
	Statuses []PublicStatus              `json:"statuses"`
}

// PublicShop 门店公开信息
type PublicShop struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Currency string `json:"currency"`
}

// PublicStatus 状态与显示名称
type PublicStatus struct {
	Status string `json:"status"`
	Label  string `json:"label"`
}

// GetConfig 获取公开配置
func (h *Handler) GetConfig(c *gin.Context) {
	ctx := c.Request.Context()
	var cached PublicConfig
	if hit, err := h.Cache.GetJSON(ctx, handlershared.PublicConfigCacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	shop, err := h.SettingService.GetShopSetting()
	if err != nil {
		respondError(c, err)
		return
	}
	data := PublicConfig{
		Shop: PublicShop{
			Name:     shop.Name,
			Phone:    shop.Phone,
			Address:  shop.Address,
			Currency: shop.Currency,
		},
		Captcha:  h.CaptchaService.PublicConfig(),
		Statuses: publicStatuses(),
	}
	if err := h.Cache.SetJSON(ctx, handlershared.PublicConfigCacheKey, data, publicConfigCacheTTL); err != nil {
		logger.Debugw("public_config_cache_set_failed", "error", err)
	}
	response.Success(c, data)
}

func publicStatuses() []PublicStatus {
	result := make([]PublicStatus, 0, len(constants.OrderStatuses))
	for _, status := range constants.OrderStatuses {
		result = append(result, PublicStatus{Status: status, Label: service.OrderStatusLabel(status)})
	}
	return result
}
