package service

import (
	"context"
	"errors"
	"testing"

	"github.com/snipero7/qr24-sub000/internal/cache"
	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	auth      *AuthService
	adminRepo *repository.GormAdminRepository
	logRepo   *repository.GormLoginLogRepository
	store     *cache.Store
	compares  int
}

func newAuthFixture(t *testing.T, policy string, store *cache.Store) *authFixture {
	t.Helper()
	db := openServiceTestDB(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{SecretKey: "jwt-test-secret", ExpireHours: 2},
		Security: config.SecurityConfig{
			LoginThrottle:  config.LoginThrottleConfig{Policy: policy, MaxAttempts: 5, WindowSeconds: 900, LockSeconds: 900},
			PasswordPolicy: config.PasswordPolicyConfig{MinLength: 8, RequireLetter: true, RequireNumber: true},
		},
	}
	f := &authFixture{
		adminRepo: repository.NewAdminRepository(db),
		logRepo:   repository.NewLoginLogRepository(db),
		store:     store,
	}
	throttle := NewLoginThrottle(cache.NewThrottleStore(store), cfg.Security.LoginThrottle)
	f.auth = NewAuthService(cfg, f.adminRepo, f.logRepo, throttle, NewCaptchaService(config.CaptchaConfig{}), store)
	f.auth.verifyPassword = func(hashed, password string) error {
		f.compares++
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("counter2025"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := f.adminRepo.Create(&models.Admin{Username: "cashier", PasswordHash: string(hash)}); err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return f
}

func newRedisStore(t *testing.T) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewStore(client, "test"), mr
}

func loginInput(password string) LoginInput {
	return LoginInput{Username: "Cashier", Password: password, ClientIP: "10.0.0.7", UserAgent: "test"}
}

func TestLoginLocksAfterMaxFailures(t *testing.T) {
	store, _ := newRedisStore(t)
	f := newAuthFixture(t, constants.PolicyEnforced, store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.auth.Login(ctx, loginInput("wrong-pass1")); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i+1, err)
		}
	}
	if f.compares != 5 {
		t.Fatalf("expected 5 password compares, got %d", f.compares)
	}

	if _, err := f.auth.Login(ctx, loginInput("counter2025")); !errors.Is(err, ErrLocked) {
		t.Fatalf("sixth attempt should be locked, got %v", err)
	}
	if f.compares != 5 {
		t.Fatalf("locked attempt must not compare credentials, got %d compares", f.compares)
	}

	logs, total, err := f.logRepo.List(repository.LoginLogListFilter{Page: 1, PageSize: 10, Status: constants.LoginStatusLocked})
	if err != nil {
		t.Fatalf("list login logs failed: %v", err)
	}
	if total != 1 || logs[0].Username != "Cashier" || logs[0].ClientIP != "10.0.0.7" {
		t.Fatalf("locked attempt should be logged: %+v", logs)
	}
}

func TestLoginSuccessClearsFailures(t *testing.T) {
	store, mr := newRedisStore(t)
	f := newAuthFixture(t, constants.PolicyEnforced, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.auth.Login(ctx, loginInput("nope")); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
	}
	if !mr.Exists("test:throttle:email:cashier") || !mr.Exists("test:throttle:ip:10.0.0.7") {
		t.Fatalf("failures should be tracked per account and ip")
	}

	result, err := f.auth.Login(ctx, loginInput("counter2025"))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" || result.Admin.LastLoginAt == nil {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if mr.Exists("test:throttle:email:cashier") || mr.Exists("test:throttle:ip:10.0.0.7") {
		t.Fatalf("success should clear throttle state")
	}

	claims, err := f.auth.ParseJWT(result.Token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.AdminID != result.Admin.ID || claims.Username != "cashier" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	state, hit, err := store.GetAdminAuthState(ctx, result.Admin.ID)
	if err != nil || !hit || state.Username != "cashier" {
		t.Fatalf("auth state should be cached: %+v %v %v", state, hit, err)
	}
}

func TestLoginThrottlePolicyOnStoreOutage(t *testing.T) {
	down := cache.NewStore(nil, "")

	bestEffort := newAuthFixture(t, constants.PolicyBestEffort, down)
	if _, err := bestEffort.auth.Login(context.Background(), loginInput("counter2025")); err != nil {
		t.Fatalf("best_effort should fail open, got %v", err)
	}

	enforced := newAuthFixture(t, constants.PolicyEnforced, down)
	if _, err := enforced.auth.Login(context.Background(), loginInput("counter2025")); !errors.Is(err, ErrThrottleStore) {
		t.Fatalf("enforced should fail closed, got %v", err)
	}
	if enforced.compares != 0 {
		t.Fatalf("fail-closed login must not compare credentials")
	}

	disabled := newAuthFixture(t, constants.PolicyDisabled, down)
	for i := 0; i < 7; i++ {
		_, _ = disabled.auth.Login(context.Background(), loginInput("bad"))
	}
	if _, err := disabled.auth.Login(context.Background(), loginInput("counter2025")); err != nil {
		t.Fatalf("disabled throttle should never lock, got %v", err)
	}
}

func TestChangePasswordBumpsTokenVersion(t *testing.T) {
	store, _ := newRedisStore(t)
	f := newAuthFixture(t, constants.PolicyDisabled, store)
	ctx := context.Background()
	admin, _ := f.adminRepo.GetByUsername("cashier")

	if err := f.auth.ChangePassword(ctx, admin.ID, "wrong", "newpass2025"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if err := f.auth.ChangePassword(ctx, admin.ID, "counter2025", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}
	if err := f.auth.ChangePassword(ctx, admin.ID, "counter2025", "newpass2025"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	updated, _ := f.adminRepo.GetByID(admin.ID)
	if updated.TokenVersion != admin.TokenVersion+1 {
		t.Fatalf("token version should bump: %d -> %d", admin.TokenVersion, updated.TokenVersion)
	}
	if _, err := f.auth.Login(ctx, loginInput("newpass2025")); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestValidatePasswordRules(t *testing.T) {
	policy := config.PasswordPolicyConfig{MinLength: 8, RequireLetter: true, RequireNumber: true}
	cases := map[string]bool{
		"abc":        false,
		"abcdefgh":   false,
		"12345678":   false,
		"abcd1234":   true,
		"كلمةسر2025": true,
	}
	for password, ok := range cases {
		err := validatePassword(policy, password)
		if ok && err != nil {
			t.Fatalf("%q should pass: %v", password, err)
		}
		if !ok && !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("%q should fail with weak password, got %v", password, err)
		}
	}
}
