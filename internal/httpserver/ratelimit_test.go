package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/cityfix/internal/config"
)

func limitedHandler(rps, burst int) http.Handler {
	cfg := &config.Config{RateLimitRPS: rps, RateLimitBurst: burst}
	return RateLimitMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, remoteAddr, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/reports", nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit_SecondRequestReturns429(t *testing.T) {
	handler := limitedHandler(1, 1)

	if rr := hit(handler, "1.2.3.4:12345", ""); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}

	rr := hit(handler, "1.2.3.4:12345", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After=1, got %q", rr.Header().Get("Retry-After"))
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error.Code != "rate_limited" {
		t.Errorf("expected code=rate_limited, got %q", body.Error.Code)
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	handler := limitedHandler(0, 0)

	for i := 0; i < 10; i++ {
		if rr := hit(handler, "1.2.3.4:12345", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	handler := limitedHandler(1, 1)

	if rr := hit(handler, "1.2.3.4:1", ""); rr.Code != http.StatusOK {
		t.Fatalf("IP1 first request: expected 200, got %d", rr.Code)
	}
	if rr := hit(handler, "5.6.7.8:1", ""); rr.Code != http.StatusOK {
		t.Fatalf("IP2 first request: expected 200, got %d", rr.Code)
	}
}

func TestRateLimit_UsesForwardedFor(t *testing.T) {
	handler := limitedHandler(1, 1)

	// Same proxy address, different clients behind it
	if rr := hit(handler, "10.0.0.1:443", "49.36.10.1, 10.0.0.1"); rr.Code != http.StatusOK {
		t.Fatalf("client A: expected 200, got %d", rr.Code)
	}
	if rr := hit(handler, "10.0.0.1:443", "49.36.10.2"); rr.Code != http.StatusOK {
		t.Fatalf("client B: expected 200, got %d", rr.Code)
	}
	if rr := hit(handler, "10.0.0.1:443", "49.36.10.1"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("client A again: expected 429, got %d", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote, xff, want string
	}{
		{"1.2.3.4:5678", "", "1.2.3.4"},
		{"1.2.3.4:5678", " 49.36.10.1 , 10.0.0.1", "49.36.10.1"},
		{"1.2.3.4:5678", ",", "1.2.3.4"},
		{"unix-socket", "", "unix-socket"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q, %q) = %q, want %q", tt.remote, tt.xff, got, tt.want)
		}
	}
}
