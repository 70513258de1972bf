package public

import (
	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// GetImageCaptcha 获取图片验证码
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if !h.CaptchaService.Enabled() || h.CaptchaService.PublicConfig().Provider != constants.CaptchaProviderImage {
		respondError(c, service.ErrUnsupported)
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, challenge)
}
