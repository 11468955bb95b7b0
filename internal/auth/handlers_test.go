package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdg312/cityfix/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

func testConfig(mode string) *config.Config {
	return &config.Config{
		AuthMode:      mode,
		AdminUsername: "admin",
		AdminPassword: "cityfix123",
		JWTSecret:     "test-secret-key-for-testing-only",
		JWTIssuer:     "cityfix-test",
		JWTTTLMinutes: 60,
	}
}

func setupTestService(t *testing.T, mode string) *Service {
	t.Helper()
	service, err := NewService(testConfig(mode))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func login(t *testing.T, h *Handlers, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest("POST", "/v1/admin/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleLogin(w, req)
	return w
}

func TestHandleLogin(t *testing.T) {
	service := setupTestService(t, config.AuthModeAdmin)
	handler := NewHandlers(service)

	t.Run("Success", func(t *testing.T) {
		w := login(t, handler, "admin", "cityfix123")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}

		var resp LoginResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.AccessToken == "" {
			t.Fatal("expected access_token not empty")
		}
		if resp.TokenType != "Bearer" || resp.ExpiresIn != 3600 {
			t.Errorf("unexpected token metadata: %+v", resp)
		}

		sub, err := service.VerifyJWT(resp.AccessToken)
		if err != nil {
			t.Fatalf("issued token does not verify: %v", err)
		}
		if sub != "admin" {
			t.Errorf("expected sub admin, got %s", sub)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		w := login(t, handler, "admin", "letmein")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", w.Code)
		}
		var resp ErrorResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Error.Code != "invalid_credentials" {
			t.Errorf("expected invalid_credentials, got %s", resp.Error.Code)
		}
	})

	t.Run("WrongUsername", func(t *testing.T) {
		if w := login(t, handler, "root", "cityfix123"); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", w.Code)
		}
	})

	t.Run("MissingFields", func(t *testing.T) {
		if w := login(t, handler, "admin", ""); w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/admin/login", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		handler.HandleLogin(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
	})
}

func TestVerifyJWTRejections(t *testing.T) {
	service := setupTestService(t, config.AuthModeAdmin)

	sign := func(claims jwt.MapClaims, secret string) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}
	future := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", sign(jwt.MapClaims{"sub": "admin", "role": RoleAdmin, "iss": "cityfix-test", "exp": future}, "other"), ErrInvalidToken},
		{"wrong issuer", sign(jwt.MapClaims{"sub": "admin", "role": RoleAdmin, "iss": "someone-else", "exp": future}, "test-secret-key-for-testing-only"), ErrInvalidToken},
		{"expired", sign(jwt.MapClaims{"sub": "admin", "role": RoleAdmin, "iss": "cityfix-test", "exp": time.Now().Add(-time.Hour).Unix()}, "test-secret-key-for-testing-only"), ErrInvalidToken},
		{"no role", sign(jwt.MapClaims{"sub": "admin", "iss": "cityfix-test", "exp": future}, "test-secret-key-for-testing-only"), ErrNotAdmin},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.VerifyJWT(tc.token); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	service := setupTestService(t, config.AuthModeAdmin)
	mw := NewMiddleware(testConfig(config.AuthModeAdmin), service)

	var sawAdmin bool
	protected := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAdmin = IsAdmin(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("GET", "/v1/admin/stats", nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	resp, err := service.Login(req.Context(), LoginRequest{Username: "admin", Password: "cityfix123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	req = httptest.NewRequest("GET", "/v1/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with token, got %d", w.Code)
	}
	if !sawAdmin {
		t.Error("expected admin flag in request context")
	}

	req = httptest.NewRequest("GET", "/v1/admin/stats", nil)
	req.Header.Set("Authorization", "Token "+resp.AccessToken)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-Bearer scheme, got %d", w.Code)
	}
}

func TestOptionalAdmin(t *testing.T) {
	service := setupTestService(t, config.AuthModeAdmin)
	mw := NewMiddleware(testConfig(config.AuthModeAdmin), service)

	var sawAdmin bool
	h := mw.OptionalAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAdmin = IsAdmin(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/v1/assistant/messages", nil))
	if w.Code != http.StatusOK || sawAdmin {
		t.Fatalf("anonymous request should pass as citizen, code=%d admin=%v", w.Code, sawAdmin)
	}

	req := httptest.NewRequest("POST", "/v1/assistant/messages", nil)
	req.Header.Set("Authorization", "Bearer broken")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for broken token, got %d", w.Code)
	}
}

func TestAuthModeNone(t *testing.T) {
	cfg := testConfig(config.AuthModeNone)
	service := setupTestService(t, config.AuthModeNone)
	mw := NewMiddleware(cfg, service)

	var sawAdmin bool
	protected := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAdmin = IsAdmin(r.Context())
	}))

	w := httptest.NewRecorder()
	protected.ServeHTTP(w, httptest.NewRequest("DELETE", "/v1/reports/x", nil))
	if w.Code != http.StatusOK || !sawAdmin {
		t.Fatalf("expected guard disabled, code=%d admin=%v", w.Code, sawAdmin)
	}
}
