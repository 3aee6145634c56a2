package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/danhlc/poslite/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", config.DriverSQLite)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "server.db"))
	t.Setenv("HTTP_PORT", "0")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func TestNewServerWithoutRedis(t *testing.T) {
	cfg := testConfig(t)

	srv, err := newServer(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer srv.Close()

	if srv.redisClient != nil {
		t.Fatal("expected no redis client when REDIS_URL is unset")
	}
	if srv.httpServer.IdleTimeout != cfg.HTTPIdleTimeout {
		t.Fatalf("expected idle timeout %v, got %v", cfg.HTTPIdleTimeout, srv.httpServer.IdleTimeout)
	}

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d: %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(`{"name":"Ngô Quyền"}`))
	req.Header.Set("X-User-Name", "thu")
	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"created_by":"thu"`) {
		t.Fatalf("expected actor from header, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "poslite_http_requests_total") {
		t.Fatal("expected request counter in metrics output")
	}
}

func TestNewServerWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	cfg := testConfig(t)

	srv, err := newServer(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer srv.Close()

	body := `{"name":"Lý Thường Kiệt"}`
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "create-1")
		rec := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	second := send()
	if second.Header().Get("X-Idempotency-Replay") != "true" {
		t.Fatal("expected replayed response")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("expected identical body, got %s", second.Body.String())
	}

	mr.Close()
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with redis down, got %d", rec.Code)
	}
}

func TestNewServerRejectsUnreachableRedis(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://127.0.0.1:1")
	cfg := testConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := newServer(ctx, cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)

	srv, err := newServer(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
