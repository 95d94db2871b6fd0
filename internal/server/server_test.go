package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"backend-pawmates/internal/config"

	"github.com/gofiber/fiber/v2"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(config.Config{ServerPort: ":0", JWTSecret: "test-secret"}, nil, nil)
	t.Cleanup(s.Close)
	return s
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t)

	// hit a route first so a counter exists
	if _, err := s.App.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil)); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	resp, err := s.App.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	paths := []string{
		"/stats/users/user-1",
		"/walks/walk-1",
		"/walks/?user_id=user-1",
		"/schedules/",
	}
	for _, path := range paths {
		resp, err := s.App.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("%s: request failed: %v", path, err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestRateLimiterAllows(t *testing.T) {
	rl := newRateLimiter(1, 2)

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatalf("burst requests must pass")
	}
	if rl.allow("1.2.3.4") {
		t.Fatalf("expected limiter to reject past the burst")
	}
	// separate clients have separate buckets
	if !rl.allow("5.6.7.8") {
		t.Fatalf("other client must not be affected")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := newRateLimiter(0, 0)
	if rl.rps != 5 || rl.burst != 30 {
		t.Fatalf("unexpected defaults: rps=%v burst=%d", rl.rps, rl.burst)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := newRateLimiter(1, 1)
	app := fiber.New()
	app.Use(rl.middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
}

func TestRateLimitIgnoresForwardedHeader(t *testing.T) {
	rl := newRateLimiter(1, 1)
	app := fiber.New()
	app.Use(rl.middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	// rotating X-Forwarded-For must not hand out fresh buckets
	for i, fwd := range []string{"203.0.113.7", "203.0.113.8"} {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", fwd)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if i == 0 && resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if i == 1 && resp.StatusCode != fiber.StatusTooManyRequests {
			t.Fatalf("expected 429 despite rotated header, got %d", resp.StatusCode)
		}
	}
}
