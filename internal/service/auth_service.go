package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/snipero7/qr24-sub000/internal/cache"
	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 后台认证服务
type AuthService struct {
	cfg            config.JWTConfig
	passwordPolicy config.PasswordPolicyConfig
	adminRepo      repository.AdminRepository
	loginLogRepo   repository.LoginLogRepository
	throttle       *LoginThrottle
	captcha        *CaptchaService
	authCache      *cache.Store
	verifyPassword func(hashed, password string) error
	now            func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(
	cfg *config.Config,
	adminRepo repository.AdminRepository,
	loginLogRepo repository.LoginLogRepository,
	throttle *LoginThrottle,
	captcha *CaptchaService,
	authCache *cache.Store,
) *AuthService {
	return &AuthService{
		cfg:            cfg.JWT,
		passwordPolicy: cfg.Security.PasswordPolicy,
		adminRepo:      adminRepo,
		loginLogRepo:   loginLogRepo,
		throttle:       throttle,
		captcha:        captcha,
		authCache:      authCache,
		verifyPassword: func(hashed, password string) error {
			return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
		},
		now: time.Now,
	}
}

// HashPassword 哈希密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ValidatePassword 校验密码强度
func (s *AuthService) ValidatePassword(password string) error {
	return validatePassword(s.passwordPolicy, password)
}

// JWTClaims JWT 声明
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateJWT 签发后台 Token
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT 解析并校验 Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ResolveAuthState 读取鉴权快照，缓存未命中时回源数据库
func (s *AuthService) ResolveAuthState(ctx context.Context, adminID uint) (*cache.AdminAuthState, error) {
	if state, hit, err := s.authCache.GetAdminAuthState(ctx, adminID); err == nil && hit {
		return state, nil
	}
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}
	state := cache.BuildAdminAuthState(admin)
	if err := s.authCache.SetAdminAuthState(ctx, state); err != nil {
		logger.Warnw("auth_state_cache_set_failed", "admin_id", adminID, "error", err)
	}
	return state, nil
}

// LoginInput 登录参数
type LoginInput struct {
	Username  string
	Password  string
	Captcha   CaptchaVerifyPayload
	ClientIP  string
	UserAgent string
	RequestID string
}

// LoginResult 登录结果
type LoginResult struct {
	Admin     *models.Admin
	Token     string
	ExpiresAt time.Time
}

// Login 登录：锁定检查 → 验证码 → 账号密码
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}
	identifiers := ThrottleIdentifiers(username, input.ClientIP)

	locked, err := s.throttle.CheckLocked(ctx, identifiers)
	if err != nil {
		s.writeLoginLog(input, 0, constants.LoginStatusFailed, "throttle_unavailable")
		return nil, err
	}
	if locked {
		s.writeLoginLog(input, 0, constants.LoginStatusLocked, "locked")
		return nil, ErrLocked
	}

	if err := s.captcha.Verify(ctx, input.Captcha, input.ClientIP); err != nil {
		s.writeLoginLog(input, 0, constants.LoginStatusCaptchaFailed, captchaReason(err))
		if _, recErr := s.throttle.RecordFailure(ctx, identifiers); recErr != nil {
			return nil, recErr
		}
		return nil, err
	}

	admin, err := s.adminRepo.GetByUsername(strings.ToLower(username))
	if err != nil {
		return nil, err
	}
	if admin == nil || s.verifyPassword(admin.PasswordHash, input.Password) != nil {
		var adminID uint
		if admin != nil {
			adminID = admin.ID
		}
		s.writeLoginLog(input, adminID, constants.LoginStatusFailed, "invalid_credentials")
		if _, recErr := s.throttle.RecordFailure(ctx, identifiers); recErr != nil {
			return nil, recErr
		}
		return nil, ErrInvalidCredentials
	}
	if admin.Disabled {
		s.writeLoginLog(input, admin.ID, constants.LoginStatusFailed, "disabled")
		return nil, ErrAdminDisabled
	}

	if err := s.throttle.ClearState(ctx, identifiers); err != nil {
		return nil, err
	}

	now := s.now()
	admin.LastLoginAt = &now
	if err := s.adminRepo.TouchLastLogin(admin.ID, now); err != nil {
		return nil, err
	}
	if err := s.authCache.SetAdminAuthState(ctx, cache.BuildAdminAuthState(admin)); err != nil {
		logger.Warnw("auth_state_cache_set_failed", "admin_id", admin.ID, "error", err)
	}

	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, err
	}
	s.writeLoginLog(input, admin.ID, constants.LoginStatusSuccess, "")
	return &LoginResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}

func captchaReason(err error) string {
	switch {
	case errors.Is(err, ErrCaptchaRequired):
		return "captcha_required"
	case errors.Is(err, ErrCaptchaInvalid):
		return "captcha_invalid"
	default:
		return "captcha_unavailable"
	}
}

// writeLoginLog 登录日志写入失败不影响登录结果
func (s *AuthService) writeLoginLog(input LoginInput, adminID uint, status, reason string) {
	if s.loginLogRepo == nil {
		return
	}
	entry := &models.LoginLog{
		AdminID:   adminID,
		Username:  strings.TrimSpace(input.Username),
		Status:    status,
		Reason:    reason,
		ClientIP:  strings.TrimSpace(input.ClientIP),
		UserAgent: strings.TrimSpace(input.UserAgent),
		RequestID: strings.TrimSpace(input.RequestID),
		CreatedAt: s.now(),
	}
	if err := s.loginLogRepo.Create(entry); err != nil {
		logger.Warnw("login_log_write_failed", "username", entry.Username, "status", status, "error", err)
	}
}

// ListLoginLogs 分页查询登录日志
func (s *AuthService) ListLoginLogs(filter repository.LoginLogListFilter) ([]models.LoginLog, int64, error) {
	return s.loginLogRepo.List(filter)
}

// ChangePassword 修改当前账号密码，旧 Token 随版本号失效
func (s *AuthService) ChangePassword(ctx context.Context, adminID uint, oldPassword, newPassword string) error {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrNotFound
	}
	if s.verifyPassword(admin.PasswordHash, oldPassword) != nil {
		return ErrInvalidPassword
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	admin.PasswordHash = hashed
	admin.TokenVersion++
	if err := s.adminRepo.Update(admin); err != nil {
		return err
	}
	if err := s.authCache.DelAdminAuthState(ctx, admin.ID); err != nil {
		logger.Warnw("auth_state_cache_del_failed", "admin_id", admin.ID, "error", err)
	}
	return nil
}
