package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/constants"
)

func turnstileConfig(policy, verifyURL, secret string) config.CaptchaConfig {
	return config.CaptchaConfig{
		Policy:   policy,
		Provider: constants.CaptchaProviderTurnstile,
		Turnstile: config.CaptchaTurnstileConfig{
			SiteKey:   "site",
			SecretKey: secret,
			VerifyURL: verifyURL,
		},
	}
}

func TestCaptchaDisabledSkipsVerification(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Policy: "disabled", Provider: "image"})
	if err := svc.Verify(context.Background(), CaptchaVerifyPayload{}, ""); err != nil {
		t.Fatalf("disabled captcha should pass, got %v", err)
	}
	if svc.PublicConfig().Enabled {
		t.Fatalf("public config should report disabled")
	}
}

func TestCaptchaImageChallenge(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Policy: constants.PolicyEnforced, Provider: constants.CaptchaProviderImage})
	challenge, err := svc.GenerateImageChallenge()
	if err != nil {
		t.Fatalf("generate challenge failed: %v", err)
	}
	if challenge.CaptchaID == "" || challenge.ImageBase64 == "" {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	ctx := context.Background()
	if err := svc.Verify(ctx, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID}, ""); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("missing answer should be required, got %v", err)
	}
	if err := svc.Verify(ctx, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: "0000"}, ""); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("wrong answer should be invalid, got %v", err)
	}
}

func TestCaptchaTurnstilePolicies(t *testing.T) {
	var success bool
	var status int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("secret") != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if success {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	payload := CaptchaVerifyPayload{TurnstileToken: "token"}
	enforced := NewCaptchaService(turnstileConfig(constants.PolicyEnforced, srv.URL, "secret"))
	bestEffort := NewCaptchaService(turnstileConfig(constants.PolicyBestEffort, srv.URL, "secret"))

	success = true
	if err := enforced.Verify(ctx, payload, "1.2.3.4"); err != nil {
		t.Fatalf("valid token should pass, got %v", err)
	}

	success = false
	if err := bestEffort.Verify(ctx, payload, ""); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("rejected token fails under every policy, got %v", err)
	}
	if err := bestEffort.Verify(ctx, CaptchaVerifyPayload{}, ""); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("missing token fails under every policy, got %v", err)
	}

	status = http.StatusBadGateway
	if err := enforced.Verify(ctx, payload, ""); !errors.Is(err, ErrCaptchaVerifyFailed) {
		t.Fatalf("enforced should fail closed on outage, got %v", err)
	}
	if err := bestEffort.Verify(ctx, payload, ""); err != nil {
		t.Fatalf("best_effort should fail open on outage, got %v", err)
	}

	misconfigured := NewCaptchaService(turnstileConfig(constants.PolicyEnforced, srv.URL, ""))
	if err := misconfigured.Verify(ctx, payload, ""); !errors.Is(err, ErrCaptchaConfigInvalid) {
		t.Fatalf("missing secret should be a config error, got %v", err)
	}
	if cfg := enforced.PublicConfig(); !cfg.Enabled || cfg.SiteKey != "site" {
		t.Fatalf("unexpected public config: %+v", cfg)
	}
}
