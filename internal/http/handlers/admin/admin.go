package admin

import (
	"strings"
	"time"

	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求；验证码字段按当前验证码类型二选一
type LoginRequest struct {
	Username       string `json:"username" binding:"required"`
	Password       string `json:"password" binding:"required"`
	CaptchaID      string `json:"captcha_id"`
	CaptchaCode    string `json:"captcha_code"`
	TurnstileToken string `json:"turnstile_token"`
}

func (r LoginRequest) captcha() service.CaptchaVerifyPayload {
	return service.CaptchaVerifyPayload{
		CaptchaID:      strings.TrimSpace(r.CaptchaID),
		CaptchaCode:    strings.TrimSpace(r.CaptchaCode),
		TurnstileToken: strings.TrimSpace(r.TurnstileToken),
	}
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	ExpiresAt string                 `json:"expires_at"`
	User      *service.AdminUserView `json:"user"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.AuthService.Login(c.Request.Context(), service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		Captcha:   req.captcha(),
		ClientIP:  c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		RequestID: c.GetString("request_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := h.AdminUserService.Get(result.Admin.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
		User:      view,
	})
}

// GetAdminMe 当前登录账号
func (h *Handler) GetAdminMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	view, err := h.AdminUserService.Get(adminID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, view)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 修改当前账号密码，成功后旧 Token 失效
func (h *Handler) ChangePassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		respondError(c, service.ErrWeakPassword)
		return
	}
	if err := h.AuthService.ChangePassword(c.Request.Context(), adminID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMsg(c, "password changed, please log in again", nil)
}
