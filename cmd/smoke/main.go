package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"
)

// 1x1 transparent PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0A, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

var (
	apiBase  string
	username string
	password string
	token    string
	client   = &http.Client{
		Timeout: 30 * time.Second,
		// Image downloads may redirect to S3; the redirect itself is the check.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// Random spot in Bengaluru so repeated runs never collide in dedup.
	lat = 12.90 + rand.Float64()*0.1
	lng = 77.55 + rand.Float64()*0.1

	imageHandle string
	reportID    string
	throwawayID string
)

func main() {
	fmt.Println("=== CityFix E2E Smoke Test ===")
	fmt.Println()

	apiBase = strings.TrimRight(getEnv("API_BASE_URL", defaultAPIBase), "/")
	username = getEnv("SMOKE_ADMIN_USERNAME", "admin")
	password = getEnv("SMOKE_ADMIN_PASSWORD", "cityfix123")

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Admin: %s / %s\n", username, maskString(password))
	fmt.Printf("Location: %.6f, %.6f\n", lat, lng)
	fmt.Println()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Admin Login", testAdminLogin},
		{"Upload Image", testUploadImage},
		{"Download Image", testDownloadImage},
		{"Create Report", testCreateReport},
		{"Duplicate Rejected", testDuplicateRejected},
		{"List Reports", testListReports},
		{"Get Report", testGetReport},
		{"Assistant Status", testAssistantStatus},
		{"Admin Guard", testAdminGuard},
		{"Update Status", testUpdateStatus},
		{"Delete Refused", testDeleteRefused},
		{"Stats", testStats},
		{"Export CSV", testExportCSV},
		{"Delete Pending Report", testDeletePending},
		{"Resolve Report", testResolveReport},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	var result struct {
		Status  string `json:"status"`
		Storage string `json:"storage"`
	}
	if err := call("GET", "/healthz", nil, false, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Status != "ok" {
		return fmt.Errorf("status=%q storage=%q", result.Status, result.Storage)
	}
	return nil
}

func testAdminLogin() error {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	payload := map[string]string{"username": username, "password": password}
	if err := call("POST", "/v1/admin/login", payload, false, http.StatusOK, &result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return fmt.Errorf("empty access_token")
	}
	token = result.AccessToken
	return nil
}

func testUploadImage() error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="smoke-pothole.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(pngPixel); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest("POST", apiBase+"/v1/images", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result struct {
		Handle   string `json:"handle"`
		Analysis *struct {
			SuggestedType string `json:"suggested_type"`
		} `json:"analysis"`
	}
	if err := send(req, http.StatusCreated, &result); err != nil {
		return err
	}
	if result.Handle == "" {
		return fmt.Errorf("empty image handle")
	}
	imageHandle = result.Handle
	return nil
}

func testDownloadImage() error {
	req, err := http.NewRequest("GET", apiBase+"/v1/images/"+imageHandle, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, _ := io.ReadAll(resp.Body)
		if !bytes.Equal(data, pngPixel) {
			return fmt.Errorf("downloaded %d bytes, want %d", len(data), len(pngPixel))
		}
		return nil
	case http.StatusFound:
		if resp.Header.Get("Location") == "" {
			return fmt.Errorf("redirect without Location")
		}
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("unexpected status=%d body=%s", resp.StatusCode, string(body))
}

func reportPayload(latitude float64, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "pothole",
		"description": description,
		"location":    map[string]float64{"latitude": latitude, "longitude": lng},
		"images":      []string{imageHandle},
	}
}

func testCreateReport() error {
	var result struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Priority string `json:"priority"`
	}
	if err := call("POST", "/v1/reports", reportPayload(lat, "Smoke test pothole"), false, http.StatusCreated, &result); err != nil {
		return err
	}
	if result.Status != "pending" {
		return fmt.Errorf("new report status=%q, want pending", result.Status)
	}
	reportID = result.ID
	return nil
}

func testDuplicateRejected() error {
	// ~10 m north of the first report
	var result struct {
		Error struct {
			Code       string `json:"code"`
			ExistingID string `json:"existing_report_id"`
		} `json:"error"`
	}
	if err := call("POST", "/v1/reports", reportPayload(lat+0.00009, "Same pothole again"), false, http.StatusConflict, &result); err != nil {
		return err
	}
	if result.Error.ExistingID != reportID {
		return fmt.Errorf("existing_report_id=%q, want %q", result.Error.ExistingID, reportID)
	}
	return nil
}

func testListReports() error {
	var result struct {
		Reports []struct {
			ID string `json:"id"`
		} `json:"reports"`
	}
	if err := call("GET", "/v1/reports?type=pothole&status=pending", nil, false, http.StatusOK, &result); err != nil {
		return err
	}
	for _, r := range result.Reports {
		if r.ID == reportID {
			return nil
		}
	}
	return fmt.Errorf("created report %s not found in list (%d items)", reportID, len(result.Reports))
}

func testGetReport() error {
	var result struct {
		ID     string   `json:"id"`
		Images []string `json:"images"`
	}
	if err := call("GET", "/v1/reports/"+reportID, nil, false, http.StatusOK, &result); err != nil {
		return err
	}
	if len(result.Images) != 1 || result.Images[0] != imageHandle {
		return fmt.Errorf("images=%v, want [%s]", result.Images, imageHandle)
	}
	return nil
}

func testAssistantStatus() error {
	var result struct {
		Reply string `json:"reply"`
	}
	payload := map[string]string{"message": "status of id " + reportID}
	if err := call("POST", "/v1/assistant/messages", payload, false, http.StatusOK, &result); err != nil {
		return err
	}
	if !strings.Contains(result.Reply, "pending") {
		return fmt.Errorf("unexpected reply: %s", result.Reply)
	}
	return nil
}

func testAdminGuard() error {
	payload := map[string]string{"status": "resolved"}
	return call("PATCH", "/v1/reports/"+reportID+"/status", payload, false, http.StatusUnauthorized, nil)
}

func testUpdateStatus() error {
	var result struct {
		Status string `json:"status"`
	}
	payload := map[string]string{"status": "investigating"}
	if err := call("PATCH", "/v1/reports/"+reportID+"/status", payload, true, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Status != "investigating" {
		return fmt.Errorf("status=%q, want investigating", result.Status)
	}
	return nil
}

func testDeleteRefused() error {
	return call("DELETE", "/v1/reports/"+reportID, nil, true, http.StatusConflict, nil)
}

func testStats() error {
	var result struct {
		Total         int `json:"total"`
		Investigating int `json:"investigating"`
	}
	if err := call("GET", "/v1/admin/stats", nil, true, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Total < 1 || result.Investigating < 1 {
		return fmt.Errorf("unexpected stats: %+v", result)
	}
	return nil
}

func testExportCSV() error {
	req, err := http.NewRequest("GET", apiBase+"/v1/admin/export?format=csv&type=pothole", nil)
	if err != nil {
		return err
	}
	addAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), reportID) {
		return fmt.Errorf("export does not contain report %s", reportID)
	}
	return nil
}

func testDeletePending() error {
	var result struct {
		ID string `json:"id"`
	}
	payload := map[string]interface{}{
		"type":        "graffiti",
		"description": "Smoke test graffiti, deleted right away",
		"location":    map[string]float64{"latitude": lat, "longitude": lng},
	}
	if err := call("POST", "/v1/reports", payload, false, http.StatusCreated, &result); err != nil {
		return err
	}
	throwawayID = result.ID

	if err := call("DELETE", "/v1/reports/"+throwawayID, nil, true, http.StatusNoContent, nil); err != nil {
		return err
	}
	return call("GET", "/v1/reports/"+throwawayID, nil, false, http.StatusNotFound, nil)
}

// Resolved reports no longer block new ones at the same spot.
func testResolveReport() error {
	payload := map[string]string{"status": "resolved"}
	return call("PATCH", "/v1/reports/"+reportID+"/status", payload, true, http.StatusOK, nil)
}

// Helper functions

func call(method, path string, payload interface{}, admin bool, wantStatus int, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		addAuth(req)
	}
	return send(req, wantStatus, out)
}

func send(req *http.Request, wantStatus int, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status=%d (want %d) body=%s", resp.StatusCode, wantStatus, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}

func addAuth(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
