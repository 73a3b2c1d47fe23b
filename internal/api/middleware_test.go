package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitMiddleware_AllowsWithinLimit(t *testing.T) {
	handler := RateLimitMiddleware(5)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Driver-ID", "driver-a")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
}

func TestRateLimitMiddleware_BlocksOverLimit(t *testing.T) {
	handler := RateLimitMiddleware(3)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Driver-ID", "driver-a")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
	}

	// 4th request should be rate-limited
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Driver-ID", "driver-a")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestRateLimitMiddleware_UsesDriverIDAsKey(t *testing.T) {
	handler := RateLimitMiddleware(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust limit for driver-a
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Driver-ID", "driver-a")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
	}

	// driver-b should still be allowed
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Driver-ID", "driver-b")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("driver-b should not be rate-limited, got %d", w.Code)
	}

	// driver-a should be blocked
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Driver-ID", "driver-a")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("driver-a should be rate-limited, got %d", w.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	called := false
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Driver-ID", "test-driver")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("inner handler was not called")
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestDriverIDMiddleware(t *testing.T) {
	handler := DriverIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without driver id, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Driver-ID", "driver-a")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 with driver id, got %d", w.Code)
	}
}

func TestAdminAuthMiddlewareOpenWithoutToken(t *testing.T) {
	handler := AdminAuthMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when no admin token configured, got %d", w.Code)
	}
}

func TestRateLimitMiddleware_NonPositiveLimitDisables(t *testing.T) {
	for _, n := range []int{0, -5} {
		handler := RateLimitMiddleware(n)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		for i := 0; i < 10; i++ {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("X-Driver-ID", "driver-a")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("limit %d, request %d: expected 200, got %d", n, i+1, w.Code)
			}
		}
	}
}

func TestLimiterSet_DropsIdleKeys(t *testing.T) {
	start := time.Now()
	s := newLimiterSet(60, start)

	a := s.get("driver-a", start)
	s.get("driver-b", start.Add(30*time.Second))
	if s.size() != 2 {
		t.Fatalf("expected 2 limiters, got %d", s.size())
	}
	if s.get("driver-a", start.Add(10*time.Second)) != a {
		t.Error("expected the same limiter for a recently seen key")
	}

	// driver-a was last seen at +10s, driver-b at +30s; at +75s only driver-a is idle long enough.
	s.get("driver-c", start.Add(75*time.Second))
	if s.size() != 2 {
		t.Errorf("expected idle driver-a to be dropped, got %d limiters", s.size())
	}
	if s.get("driver-a", start.Add(76*time.Second)) == a {
		t.Error("expected a fresh limiter after eviction")
	}
}
