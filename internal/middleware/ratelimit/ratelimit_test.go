package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAllowEnforcesPerKeyWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("u1") {
			t.Fatalf("request %d for u1 denied, want allowed", i+1)
		}
	}
	if rl.Allow("u1") {
		t.Error("fourth request for u1 allowed, want denied")
	}
	if !rl.Allow("u2") {
		t.Error("first request for u2 denied, keys must not share a bucket")
	}
}

func TestMiddlewareBypassesEmptyKey(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	handler := rl.Middleware(func(r *http.Request) string {
		return r.Header.Get("X-User-ID")
	}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Keyless requests pass through without touching any bucket.
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("keyless request %d status = %d, want 200", i+1, rr.Code)
		}
	}
	if got := rl.ActiveClients(); got != 0 {
		t.Errorf("ActiveClients() = %d after keyless traffic, want 0", got)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-User-ID", "u1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("first keyed request status = %d, want 200", rr.Code)
	}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second keyed request status = %d, want 429", rr.Code)
	}
}
