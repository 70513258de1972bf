package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/logger"

	"github.com/mojocn/base64Captcha"
)

const defaultTurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// CaptchaVerifyPayload 验证码校验载荷
type CaptchaVerifyPayload struct {
	CaptchaID      string `json:"captcha_id"`
	CaptchaCode    string `json:"captcha_code"`
	TurnstileToken string `json:"turnstile_token"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaPublicConfig 前端可见的验证码配置
type CaptchaPublicConfig struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"`
	SiteKey  string `json:"site_key,omitempty"`
}

type turnstileVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// CaptchaService 登录验证码
// policy=disabled 不校验；enforced 时配置缺失或校验服务不可用直接拒绝；
// best_effort 时这两种情况放行并记录日志。答案错误在任何策略下都拒绝。
type CaptchaService struct {
	cfg        config.CaptchaConfig
	policy     string
	provider   string
	httpClient *http.Client
	imageStore base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	timeout := cfg.Turnstile.TimeoutMS
	if timeout < 500 || timeout > 10000 {
		timeout = 2000
	}
	expire := cfg.Image.ExpireSeconds
	if expire <= 0 {
		expire = 300
	}
	maxStore := cfg.Image.MaxStore
	if maxStore <= 0 {
		maxStore = 10240
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider != constants.CaptchaProviderTurnstile {
		provider = constants.CaptchaProviderImage
	}
	return &CaptchaService{
		cfg:        cfg,
		policy:     NormalizePolicy(cfg.Policy, constants.PolicyDisabled),
		provider:   provider,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Millisecond},
		imageStore: base64Captcha.NewMemoryStore(maxStore, time.Duration(expire)*time.Second),
	}
}

// Enabled 是否需要验证码
func (s *CaptchaService) Enabled() bool {
	return s != nil && s.policy != constants.PolicyDisabled
}

// PublicConfig 前端配置
func (s *CaptchaService) PublicConfig() CaptchaPublicConfig {
	if !s.Enabled() {
		return CaptchaPublicConfig{Enabled: false}
	}
	cfg := CaptchaPublicConfig{Enabled: true, Provider: s.provider}
	if s.provider == constants.CaptchaProviderTurnstile {
		cfg.SiteKey = strings.TrimSpace(s.cfg.Turnstile.SiteKey)
	}
	return cfg
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if !s.Enabled() || s.provider != constants.CaptchaProviderImage {
		return nil, ErrCaptchaConfigInvalid
	}
	img := s.cfg.Image
	length := img.Length
	if length < 4 || length > 8 {
		length = 5
	}
	width := img.Width
	if width < 100 {
		width = 240
	}
	height := img.Height
	if height < 40 {
		height = 80
	}
	driver := base64Captcha.NewDriverString(
		height,
		width,
		img.NoiseCount,
		img.ShowLine,
		length,
		"23456789abcdefghjkmnpqrstuvwxyz",
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	id, b64s, _, err := base64Captcha.NewCaptcha(driver, s.imageStore).Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{CaptchaID: id, ImageBase64: b64s}, nil
}

// Verify 校验验证码
func (s *CaptchaService) Verify(ctx context.Context, payload CaptchaVerifyPayload, clientIP string) error {
	if !s.Enabled() {
		return nil
	}
	switch s.provider {
	case constants.CaptchaProviderTurnstile:
		token := strings.TrimSpace(payload.TurnstileToken)
		if token == "" {
			return ErrCaptchaRequired
		}
		return s.dependencyFailure(s.verifyTurnstile(ctx, token, strings.TrimSpace(clientIP)))
	default:
		id := strings.TrimSpace(payload.CaptchaID)
		code := strings.TrimSpace(payload.CaptchaCode)
		if id == "" || code == "" {
			return ErrCaptchaRequired
		}
		if !s.imageStore.Verify(id, strings.ToLower(code), true) {
			return ErrCaptchaInvalid
		}
		return nil
	}
}

// dependencyFailure 配置缺失或校验服务故障按策略处理
func (s *CaptchaService) dependencyFailure(err error) error {
	if err == nil || err == ErrCaptchaInvalid {
		return err
	}
	if s.policy == constants.PolicyBestEffort {
		logger.Warnw("captcha_verify_skipped", "provider", s.provider, "error", err)
		return nil
	}
	return err
}

func (s *CaptchaService) verifyTurnstile(ctx context.Context, token, clientIP string) error {
	secret := strings.TrimSpace(s.cfg.Turnstile.SecretKey)
	if secret == "" {
		return ErrCaptchaConfigInvalid
	}
	verifyURL := strings.TrimSpace(s.cfg.Turnstile.VerifyURL)
	if verifyURL == "" {
		verifyURL = defaultTurnstileVerifyURL
	}

	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)
	if clientIP != "" {
		form.Set("remoteip", clientIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrCaptchaVerifyFailed, resp.StatusCode)
	}

	var result turnstileVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	if !result.Success {
		return ErrCaptchaInvalid
	}
	return nil
}
