package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/snipero7/qr24-sub000/internal/cache"
	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/logger"
)

// ThrottleBackend 限流状态存储
type ThrottleBackend interface {
	Get(ctx context.Context, identifier string) (cache.ThrottleState, error)
	RecordFailure(ctx context.Context, identifier string, maxAttempts int, window, lock time.Duration, now time.Time) (cache.ThrottleState, error)
	Clear(ctx context.Context, identifiers ...string) error
}

// LoginThrottle 登录失败计数与锁定（账号、IP 分别计数，任一锁定即拒绝）
type LoginThrottle struct {
	backend     ThrottleBackend
	policy      string
	maxAttempts int
	window      time.Duration
	lock        time.Duration
	now         func() time.Time
}

// NewLoginThrottle 创建登录限流
func NewLoginThrottle(backend ThrottleBackend, cfg config.LoginThrottleConfig) *LoginThrottle {
	policy := NormalizePolicy(cfg.Policy, constants.PolicyBestEffort)
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = 15 * time.Minute
	}
	lock := time.Duration(cfg.LockSeconds) * time.Second
	if lock <= 0 {
		lock = 15 * time.Minute
	}
	return &LoginThrottle{
		backend:     backend,
		policy:      policy,
		maxAttempts: maxAttempts,
		window:      window,
		lock:        lock,
		now:         time.Now,
	}
}

// NormalizePolicy 归一化失败策略，未知值回退 fallback
func NormalizePolicy(policy, fallback string) string {
	switch p := strings.ToLower(strings.TrimSpace(policy)); p {
	case constants.PolicyEnforced, constants.PolicyDisabled, constants.PolicyBestEffort:
		return p
	default:
		return fallback
	}
}

// ThrottleIdentifiers 生成账号与 IP 两个计数标识
func ThrottleIdentifiers(username, clientIP string) []string {
	ids := make([]string, 0, 2)
	if name := strings.ToLower(strings.TrimSpace(username)); name != "" {
		ids = append(ids, "email:"+name)
	}
	if ip := strings.TrimSpace(clientIP); ip != "" {
		ids = append(ids, "ip:"+ip)
	}
	return ids
}

// Policy 当前策略
func (t *LoginThrottle) Policy() string {
	return t.policy
}

// storeFailure 按策略处理存储故障：best_effort 放行，enforced 拒绝
func (t *LoginThrottle) storeFailure(op string, err error) error {
	if t.policy == constants.PolicyEnforced {
		return fmt.Errorf("%w: %v", ErrThrottleStore, err)
	}
	logger.Warnw("login_throttle_store_unavailable", "op", op, "policy", t.policy, "error", err)
	return nil
}

// CheckLocked 任一标识处于锁定期即返回 true
func (t *LoginThrottle) CheckLocked(ctx context.Context, identifiers []string) (bool, error) {
	if t == nil || t.policy == constants.PolicyDisabled {
		return false, nil
	}
	if t.backend == nil {
		return false, t.storeFailure("check", cache.ErrStoreUnavailable)
	}
	now := t.now()
	for _, id := range identifiers {
		state, err := t.backend.Get(ctx, id)
		if err != nil {
			return false, t.storeFailure("check", err)
		}
		if state.IsLocked(now) {
			return true, nil
		}
	}
	return false, nil
}

// RecordFailure 所有标识失败次数加一，返回是否已有标识进入锁定
func (t *LoginThrottle) RecordFailure(ctx context.Context, identifiers []string) (bool, error) {
	if t == nil || t.policy == constants.PolicyDisabled {
		return false, nil
	}
	if t.backend == nil {
		return false, t.storeFailure("record", cache.ErrStoreUnavailable)
	}
	now := t.now()
	locked := false
	for _, id := range identifiers {
		state, err := t.backend.RecordFailure(ctx, id, t.maxAttempts, t.window, t.lock, now)
		if err != nil {
			return locked, t.storeFailure("record", err)
		}
		if state.IsLocked(now) {
			locked = true
		}
	}
	return locked, nil
}

// ClearState 登录成功后清除计数
func (t *LoginThrottle) ClearState(ctx context.Context, identifiers []string) error {
	if t == nil || t.policy == constants.PolicyDisabled || len(identifiers) == 0 {
		return nil
	}
	if t.backend == nil {
		return t.storeFailure("clear", cache.ErrStoreUnavailable)
	}
	if err := t.backend.Clear(ctx, identifiers...); err != nil {
		return t.storeFailure("clear", err)
	}
	return nil
}
