package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/cityfix/internal/config"
)

func TestCORS_Preflight(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins: []string{"https://cityfix.example.in"},
	}

	handler := CORSMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called for preflight")
	}))

	tests := []struct {
		name        string
		origin      string
		wantOrigin  string
		wantMethods string
	}{
		{"allowed", "https://cityfix.example.in", "https://cityfix.example.in", corsAllowMethods},
		{"disallowed", "https://evil.com", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/v1/reports", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusNoContent {
				t.Errorf("expected 204, got %d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("expected Allow-Origin=%q, got %q", tt.wantOrigin, got)
			}
			if got := rr.Header().Get("Access-Control-Allow-Methods"); got != tt.wantMethods {
				t.Errorf("expected Allow-Methods=%q, got %q", tt.wantMethods, got)
			}
		})
	}
}

func TestCORS_NormalRequests(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantOrigin string
	}{
		{"allowed origin", []string{"https://cityfix.example.in"}, "https://cityfix.example.in", "https://cityfix.example.in"},
		{"disallowed origin", []string{"https://cityfix.example.in"}, "https://evil.com", ""},
		{"no origin header", []string{"https://cityfix.example.in"}, "", ""},
		{"wildcard", []string{"*"}, "https://ward-office.example.org", "https://ward-office.example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{CORSAllowedOrigins: tt.origins, CORSAllowCredentials: true}

			innerCalled := false
			handler := CORSMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				innerCalled = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/reports", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if !innerCalled {
				t.Error("expected inner handler to be called for non-OPTIONS request")
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("expected Allow-Origin=%q, got %q", tt.wantOrigin, got)
			}
			wantCreds := ""
			if tt.wantOrigin != "" {
				wantCreds = "true"
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != wantCreds {
				t.Errorf("expected Allow-Credentials=%q, got %q", wantCreds, got)
			}
		})
	}
}
