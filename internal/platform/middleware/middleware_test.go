package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newCtx(method, target string, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequestID_GeneratesNew(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/", "")

	h := RequestID()(func(c echo.Context) error {
		if rid, _ := c.Get("request_id").(string); rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Header().Get(RequestIDHeader)) != 24 {
		t.Errorf("expected 24 hex chars, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/", "")
	c.Request().Header.Set(RequestIDHeader, "my-custom-id")

	_ = RequestID()(okHandler)(c)

	if c.Get("request_id") != "my-custom-id" {
		t.Errorf("expected my-custom-id, got %v", c.Get("request_id"))
	}
	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	c, _ := newCtx(http.MethodGet, "/api/v1/patients", "")
	c.Set("request_id", "rid-1")
	c.Set("user_id", "user-1")

	if err := Logger(logger)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"request_id":"rid-1"`, `"path":"/api/v1/patients"`, `"status":200`, `"user_id":"user-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %s, got %s", want, out)
		}
	}
}

func TestLogger_LogsErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	c, _ := newCtx(http.MethodGet, "/api/v1/patients/x", "")

	err := Logger(zerolog.New(&buf))(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	})(c)
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}
	if !strings.Contains(buf.String(), `"status":404`) {
		t.Errorf("expected logged status 404, got %s", buf.String())
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/", "")

	err := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("boom")
	})(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/", "")
	if err := Recovery(zerolog.Nop())(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequestTimeout_CompletesWithinDeadline(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/api/v1/patients", "")
	if err := RequestTimeout(time.Second, time.Minute, "/api/v1/ai/")(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequestTimeout_ReturnsTimeoutOnExpiry(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/api/v1/patients", "")

	h := RequestTimeout(20*time.Millisecond, time.Minute, "/api/v1/ai/")(func(c echo.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
}

func TestRequestTimeout_LongPrefix(t *testing.T) {
	c, _ := newCtx(http.MethodPost, "/api/v1/ai/generate-protocol", "")

	var deadline time.Time
	h := RequestTimeout(time.Second, time.Minute, "/api/v1/ai/")(func(c echo.Context) error {
		deadline, _ = c.Request().Context().Deadline()
		return nil
	})
	_ = h(c)

	if time.Until(deadline) < 30*time.Second {
		t.Errorf("expected long deadline for AI path, got %s", time.Until(deadline))
	}
}

func TestRequestTimeout_PropagatesHandlerError(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/", "")
	want := errors.New("handler failed")

	err := RequestTimeout(time.Second, time.Second)(func(c echo.Context) error { return want })(c)
	if !errors.Is(err, want) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestSecurityHeaders_SetsHeaders(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/", "")
	_ = SecurityHeaders()(okHandler)(c)

	expected := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range expected {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("header %s: expected %q, got %q", k, v, got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})(okHandler)

	for i := 0; i < 2; i++ {
		c, _ := newCtx(http.MethodGet, "/", "")
		c.Set("user_id", "user-1")
		if err := h(c); err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
	}

	c, rec := newCtx(http.MethodGet, "/", "")
	c.Set("user_id", "user-1")
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_PerUserIsolation(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(okHandler)

	for _, uid := range []string{"user-1", "user-2"} {
		c, _ := newCtx(http.MethodGet, "/", "")
		c.Set("user_id", uid)
		if err := h(c); err != nil {
			t.Errorf("%s: expected first request to pass, got %v", uid, err)
		}
	}
}

func TestUserOrIPKey(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/", "")
	if !strings.HasPrefix(userOrIPKey(c), "ip:") {
		t.Errorf("expected ip key for anonymous request, got %s", userOrIPKey(c))
	}
	c.Set("user_id", "abc")
	if userOrIPKey(c) != "user:abc" {
		t.Errorf("expected user key, got %s", userOrIPKey(c))
	}
}

func TestParseLimit(t *testing.T) {
	tests := map[string]int64{
		"1M":   1 << 20,
		"512K": 512 << 10,
		"2MB":  2 << 20,
		"100":  100,
		"":     1 << 20,
		"junk": 1 << 20,
	}
	for in, want := range tests {
		if got := parseLimit(in); got != want {
			t.Errorf("parseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestBodyLimit_RejectsOversizedBody(t *testing.T) {
	c, rec := newCtx(http.MethodPost, "/api/v1/vitals", strings.Repeat("x", 200))

	called := false
	err := BodyLimit("100", "1M", "/api/v1/ai/")(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("handler should not run for oversized body")
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestBodyLimit_LargePrefixAllowsMore(t *testing.T) {
	c, _ := newCtx(http.MethodPost, "/api/v1/ai/generate-protocol", strings.Repeat("x", 200))

	err := BodyLimit("100", "1M", "/api/v1/ai/")(func(c echo.Context) error {
		buf := new(bytes.Buffer)
		_, err := buf.ReadFrom(c.Request().Body)
		return err
	})(c)
	if err != nil {
		t.Errorf("expected AI body within large limit, got %v", err)
	}
}

func TestRequestTimeout_ClientCancel(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/", "")
	ctx, cancel := context.WithCancel(c.Request().Context())
	c.SetRequest(c.Request().WithContext(ctx))
	cancel()

	err := RequestTimeout(time.Minute, time.Minute)(func(c echo.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})(c)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
