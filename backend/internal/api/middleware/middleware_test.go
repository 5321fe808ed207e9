package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ── Mock RateLimiter ──

type mockLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (m *mockLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allowed, m.err
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		c.String(http.StatusOK, "ok")
	})
	return r
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name     string
		limiter  *mockLimiter
		limit    int
		wantCode int
	}{
		{"放行", &mockLimiter{allowed: true}, 5, http.StatusOK},
		{"超限", &mockLimiter{allowed: false}, 5, http.StatusTooManyRequests},
		{"计数失败降级放行", &mockLimiter{err: errors.New("redis down")}, 5, http.StatusOK},
		{"阈值为 0 不限流", &mockLimiter{allowed: false}, 0, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(RateLimit(tt.limiter, tt.limit, time.Minute, zap.NewNop()))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantCode == http.StatusTooManyRequests && !strings.Contains(w.Body.String(), MsgTooManyRequests) {
				t.Errorf("unexpected body: %s", w.Body.String())
			}
			if tt.limit > 0 && (len(tt.limiter.keys) != 1 || !strings.HasSuffix(tt.limiter.keys[0], ":/ping")) {
				t.Errorf("unexpected keys: %v", tt.limiter.keys)
			}
		})
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	r := newEngine(RateLimit(nil, 1, time.Minute, zap.NewNop()))
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("应生成 UUID，实际 %q", w.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("应沿用请求头，实际 %q", got)
	}

	for _, bad := range []string{strings.Repeat("x", requestIDMaxLen+1), "a b", "id\nforged"} {
		req = httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", bad)
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if got := w.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("非法请求头 %q 应被替换，实际 %q", bad, got)
		}
	}
}

// ── CORS ──

func TestCORS(t *testing.T) {
	r := newEngine(CORS([]string{"http://localhost:5173/"}))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("允许的来源应回写，实际 %q", w.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("未允许的来源不应回写 CORS 头")
	}
}

func TestCORS_Wildcard(t *testing.T) {
	r := newEngine(CORS([]string{"*"}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://any.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("通配时应回写 *，实际 %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("通配时不应允许凭证")
	}
}

// ── Logger ──

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("disk full"))
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if logs.Len() != 0 {
		t.Errorf("探活请求不应写日志，实际 %d 条", logs.Len())
	}

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zap.ErrorLevel {
		t.Fatalf("期望 1 条 error 日志，实际 %v", entries)
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" || fields["route"] != "/boom" || !strings.Contains(fields["errors"].(string), "disk full") {
		t.Errorf("日志字段不符: %v", fields)
	}
}

// ── SecurityHeaders ──

func TestSecurityHeaders(t *testing.T) {
	r := newEngine(SecurityHeaders())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Header().Get("X-Content-Type-Options") != "nosniff" || w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("安全头缺失: %v", w.Header())
	}
}

// ── BodyLimit ──

func TestBodyLimit(t *testing.T) {
	r := newEngine(BodyLimit(16))

	small := strings.NewReader(strings.Repeat("a", 16+multipartOverhead))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", small))
	if w.Code != http.StatusOK {
		t.Errorf("上限内的请求体应放行，实际 %d", w.Code)
	}

	big := strings.NewReader(strings.Repeat("a", 16+multipartOverhead+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", big))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("超出上限的请求体应读取失败，实际 %d", w.Code)
	}
}
