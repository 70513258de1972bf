package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/snipero7/qr24-sub000/internal/cache"
	"github.com/snipero7/qr24-sub000/internal/http/handlers/shared"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type stubAuthenticator struct {
	claims *service.JWTClaims
	state  *cache.AdminAuthState
}

func (s stubAuthenticator) ParseJWT(token string) (*service.JWTClaims, error) {
	if token != "good" || s.claims == nil {
		return nil, errors.New("bad token")
	}
	return s.claims, nil
}

func (s stubAuthenticator) ResolveAuthState(_ context.Context, adminID uint) (*cache.AdminAuthState, error) {
	if s.state == nil || s.state.AdminID != adminID {
		return nil, service.ErrNotFound
	}
	return s.state, nil
}

type stubEnforcer struct {
	allowed map[string]bool
	calls   int
}

func (s *stubEnforcer) EnforceAdmin(_ uint, obj, act string) (bool, error) {
	s.calls++
	return s.allowed[act+" "+obj], nil
}

func decodeStatusCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestResolveAllowedOrigin(t *testing.T) {
	if got := resolveAllowedOrigin("https://example.com", []string{"*"}, false); got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}
	if got := resolveAllowedOrigin("https://example.com", []string{"*"}, true); got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}
	if got := resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com"}, false); got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}
	if got := resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false); got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w2.Header().Get(requestIDHeader) == "" {
		t.Fatalf("generated request id should not be empty")
	}
}

func newAuthRouter(auth TokenAuthenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(auth))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0, "admin_id": c.GetUint(shared.ContextKeyAdminID)})
	})
	return r
}

func TestJWTAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	r := newAuthRouter(stubAuthenticator{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestJWTAuthMiddlewareTokenVersion(t *testing.T) {
	claims := &service.JWTClaims{AdminID: 7, Username: "owner", TokenVersion: 1}
	cases := []struct {
		name  string
		state *cache.AdminAuthState
		want  int
	}{
		{name: "current version", state: &cache.AdminAuthState{AdminID: 7, TokenVersion: 1}, want: 0},
		{name: "revoked", state: &cache.AdminAuthState{AdminID: 7, TokenVersion: 2}, want: 401},
		{name: "disabled", state: &cache.AdminAuthState{AdminID: 7, TokenVersion: 1, Disabled: true}, want: 401},
		{name: "deleted", state: nil, want: 401},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAuthRouter(stubAuthenticator{claims: claims, state: tc.state})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			req.Header.Set("Authorization", "Bearer good")
			r.ServeHTTP(w, req)
			if code := decodeStatusCode(t, w); code != tc.want {
				t.Fatalf("status_code want %d got %d", tc.want, code)
			}
		})
	}
}

func newRBACRouter(enforcer PermissionEnforcer, isSuper bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(shared.ContextKeyAdminID, uint(3))
		c.Set(shared.ContextKeyIsSuper, isSuper)
		c.Next()
	})
	r.Use(AdminRBACMiddleware(enforcer))
	r.PATCH("/api/v1/admin/orders/:id/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})
	r.POST("/api/v1/admin/orders/:id/deliver", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})
	return r
}

func TestAdminRBACMiddleware(t *testing.T) {
	enforcer := &stubEnforcer{allowed: map[string]bool{"PATCH /api/v1/admin/orders/:id/status": true}}
	r := newRBACRouter(enforcer, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/5/status", nil))
	if code := decodeStatusCode(t, w); code != 0 {
		t.Fatalf("granted route want 0 got %d", code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/5/deliver", nil))
	if code := decodeStatusCode(t, w); code != 403 {
		t.Fatalf("denied route want 403 got %d", code)
	}
}

func TestAdminRBACMiddlewareSuperBypass(t *testing.T) {
	enforcer := &stubEnforcer{}
	r := newRBACRouter(enforcer, true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/5/deliver", nil))
	if code := decodeStatusCode(t, w); code != 0 {
		t.Fatalf("super admin want 0 got %d", code)
	}
	if enforcer.calls != 0 {
		t.Fatalf("super admin should skip enforcement, got %d calls", enforcer.calls)
	}
}

func TestDeriveAdminPermissionModule(t *testing.T) {
	if got := deriveAdminPermissionModule("/admin/orders/:id/status"); got != "orders" {
		t.Fatalf("want orders got %s", got)
	}
	if got := deriveAdminPermissionModule("/health"); got != "health" {
		t.Fatalf("want health got %s", got)
	}
}
