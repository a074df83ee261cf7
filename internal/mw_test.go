package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

func TestWithRequestID_GeneratesID(t *testing.T) {
	handler := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/items", nil))

	if w.Header().Get(requestIDHeader) == "" {
		t.Error("Expected a generated request id header")
	}
}

func TestWithRequestID_KeepsClientID(t *testing.T) {
	handler := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/items", nil)
	req.Header.Set(requestIDHeader, "client-supplied-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get(requestIDHeader); got != "client-supplied-id" {
		t.Errorf("Expected client id to be kept, got %s", got)
	}
}

func TestIPLimiter_RejectsOverBurst(t *testing.T) {
	// No refill within the test window, burst of 2.
	limiter := newIPLimiter(rate.Every(time.Hour), 2)
	defer limiter.Stop()

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "198.51.100.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("Expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected third request to be throttled, got %d", codes[2])
	}
}

func TestIPLimiter_SeparateBucketsPerIP(t *testing.T) {
	limiter := newIPLimiter(rate.Every(time.Hour), 1)
	defer limiter.Stop()

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest("POST", "/auth/login", nil)
	first.RemoteAddr = "198.51.100.1:1234"
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, first)

	second := httptest.NewRequest("POST", "/auth/login", nil)
	second.RemoteAddr = "198.51.100.2:1234"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, second)

	if w1.Code != http.StatusOK || w2.Code != http.StatusOK {
		t.Errorf("Expected different IPs to have independent budgets, got %d and %d", w1.Code, w2.Code)
	}
}

func TestIPLimiter_StopEndsCleanup(t *testing.T) {
	ignoreExisting := goleak.IgnoreCurrent()

	limiter := newIPLimiter(rate.Every(time.Hour), 1)
	limiter.Stop()

	goleak.VerifyNone(t, ignoreExisting)
}
