package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prepvio/prepvio-api/internal/cache"
	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/constants"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString(constants.ContextKeyRequestID)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func TestJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware(config.JWTConfig{}, nil))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name    string
		header  string
		cookie  string
		want    string
		failKey string
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "cookie", cookie: "from-cookie", want: "from-cookie"},
		{name: "header wins", header: "Bearer abc", cookie: "from-cookie", want: "abc"},
		{name: "bad scheme", header: "Basic abc", failKey: "error.auth_header_invalid"},
		{name: "empty bearer", header: "Bearer ", failKey: "error.auth_header_invalid"},
		{name: "missing", failKey: "error.auth_header_missing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				c.Request.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				c.Request.AddCookie(&http.Cookie{Name: "user_token", Value: tc.cookie})
			}
			got, failKey := extractToken(c, "user_token")
			if got != tc.want || failKey != tc.failKey {
				t.Fatalf("want (%q,%q) got (%q,%q)", tc.want, tc.failKey, got, failKey)
			}
		})
	}
}

func TestVerifyAuthState(t *testing.T) {
	issued := jwt.NewNumericDate(time.Unix(1_700_000_100, 0))
	cases := []struct {
		name    string
		state   *cache.AuthState
		version uint64
		want    string
	}{
		{name: "missing", state: nil, want: "error.token_invalid"},
		{name: "ok admin", state: &cache.AuthState{Kind: cache.AuthKindAdmin, TokenVersion: 2}, version: 2},
		{name: "version bumped", state: &cache.AuthState{Kind: cache.AuthKindAdmin, TokenVersion: 3}, version: 2, want: "error.token_revoked"},
		{name: "issued before invalidation", state: &cache.AuthState{Kind: cache.AuthKindAdmin, TokenInvalidBefore: 1_700_000_200}, want: "error.token_revoked"},
		{name: "disabled user", state: &cache.AuthState{Kind: cache.AuthKindUser, Status: constants.UserStatusDisabled}, want: "error.user_disabled"},
		{name: "active user", state: &cache.AuthState{Kind: cache.AuthKindUser, Status: "Active", TokenInvalidBefore: 1_700_000_000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := verifyAuthState(tc.state, tc.version, issued); got != tc.want {
				t.Fatalf("want %q got %q", tc.want, got)
			}
		})
	}
}
