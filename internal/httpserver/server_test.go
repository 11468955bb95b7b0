package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/cityfix/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              8080,
		StorageMode:       config.StorageModeMemory,
		DedupLockMode:     config.LockModeLocal,
		Blob:              config.BlobConfig{Mode: config.BlobModeLocal},
		UploadMaxMB:       5,
		UploadAllowedMime: "image/jpeg,image/png",
		ReportMaxImages:   3,
		AuthMode:          config.AuthModeAdmin,
		AdminUsername:     "admin",
		AdminPassword:     "cityfix123",
		JWTSecret:         "test-secret",
		JWTIssuer:         "cityfix-test",
		JWTTTLMinutes:     60,
		ClassifierMode:    "mock",
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status=ok, got %v", resp["status"])
	}
	if resp["storage"] != config.StorageModeMemory {
		t.Errorf("expected storage=memory, got %v", resp["storage"])
	}
	if resp["reports"] != float64(0) {
		t.Errorf("expected reports=0, got %v", resp["reports"])
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodPost, "/healthz", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestNewRejectsUnknownStorageMode(t *testing.T) {
	cfg := testConfig()
	cfg.StorageMode = "cassandra"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown storage mode")
	}
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	pothole := map[string]interface{}{
		"type":        "pothole",
		"description": "Deep pothole near Connaught Place",
		"location":    map[string]float64{"latitude": 28.6304, "longitude": 77.2177},
	}

	w := do(t, h, http.MethodPost, "/v1/reports", "", pothole)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	json.NewDecoder(w.Body).Decode(&created)
	if created.Status != "pending" {
		t.Errorf("expected pending, got %s", created.Status)
	}

	// Same type ~10 m away is a duplicate
	nearby := map[string]interface{}{
		"type":        "pothole",
		"description": "Another pothole report",
		"location":    map[string]float64{"latitude": 28.63049, "longitude": 77.2177},
	}
	w = do(t, h, http.MethodPost, "/v1/reports", "", nearby)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), created.ID) {
		t.Errorf("duplicate response should name the existing report: %s", w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/v1/reports?type=pothole", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), created.ID) {
		t.Fatalf("list: code=%d body=%s", w.Code, w.Body.String())
	}

	// Admin routes need a token
	statusBody := map[string]string{"status": "in_progress"}
	if w = do(t, h, http.MethodPatch, "/v1/reports/"+created.ID+"/status", "", statusBody); w.Code != http.StatusUnauthorized {
		t.Fatalf("patch without token: expected 401, got %d", w.Code)
	}
	if w = do(t, h, http.MethodGet, "/v1/admin/stats", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("stats without token: expected 401, got %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/v1/admin/login", "", map[string]string{"username": "admin", "password": "cityfix123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", w.Code)
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	json.NewDecoder(w.Body).Decode(&login)

	w = do(t, h, http.MethodPatch, "/v1/reports/"+created.ID+"/status", login.AccessToken, statusBody)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Only pending reports can be deleted
	w = do(t, h, http.MethodDelete, "/v1/reports/"+created.ID, login.AccessToken, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("delete in_progress: expected 409, got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/v1/admin/stats", login.AccessToken, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"in_progress":1`) {
		t.Fatalf("stats: code=%d body=%s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/v1/assistant/messages", login.AccessToken, map[string]string{"message": "status of id " + created.ID})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "in progress") {
		t.Fatalf("assistant: code=%d body=%s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/healthz", "", nil)
	if !strings.Contains(w.Body.String(), `"reports":1`) {
		t.Errorf("healthz should count one report: %s", w.Body.String())
	}
}

func TestGetUnknownReport(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodGet, "/v1/reports/4b9e1a2c-6c8f-4d5e-9a1b-2c3d4e5f6a7b", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w = do(t, srv.Handler(), http.MethodGet, "/v1/reports/not-a-uuid", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
