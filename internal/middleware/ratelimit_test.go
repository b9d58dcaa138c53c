package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/circleboard/internal/handlers"
	"github.com/HammerMeetNail/circleboard/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_LocalFallbackWithoutRedis(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRateLimiter(nil, 2, time.Minute, "ratelimit:auth", logging.New().SetOutput(&buf))
	h := rl.Limit(okHandler())

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Code != handlers.CodeDenied {
		t.Fatalf("expected code %d, got %d", handlers.CodeDenied, env.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}
	if buf.Len() == 0 {
		t.Fatal("expected fallback warning to be logged")
	}
}

func TestRateLimiter_UnreachableRedisFallsBack(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rl := NewRateLimiter(client, 1, time.Minute, "ratelimit:auth", logging.New().SetOutput(&bytes.Buffer{}))
	h := rl.Limit(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/register", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/register", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request limited, got %d", rr.Code)
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(nil, 1, time.Minute, "ratelimit:auth", logging.New().SetOutput(&bytes.Buffer{}))
	h := rl.Limit(okHandler())

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("X-Real-IP", ip)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("client %s: expected 200, got %d", ip, rr.Code)
		}
	}
}

func TestRateLimiter_SweepDropsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(nil, 1, time.Minute, "test", logging.New().SetOutput(&bytes.Buffer{}))
	rl.now = func() time.Time { return now }

	rl.allowLocal("test:a")
	now = now.Add(30 * time.Second)
	rl.allowLocal("test:b")
	now = now.Add(45 * time.Second)

	rl.sweep()

	if _, ok := rl.local["test:a"]; ok {
		t.Error("expected idle visitor a to be dropped")
	}
	if _, ok := rl.local["test:b"]; !ok {
		t.Error("expected recent visitor b to be kept")
	}
}

func TestRateLimiter_CleanupStopsOnCancel(t *testing.T) {
	rl := NewRateLimiter(nil, 1, time.Minute, "test", logging.New().SetOutput(&bytes.Buffer{}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Cleanup(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.0.2.1:1234", nil, "192.0.2.1"},
		{"remote addr without port", "192.0.2.1", nil, "192.0.2.1"},
		{"forwarded chain", "192.0.2.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"forwarded with port", "192.0.2.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.5:80"}, "203.0.113.5"},
		{"real ip", "192.0.2.1:1234", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Fatalf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
