package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/fdg312/cityfix/internal/blob"
	"github.com/fdg312/cityfix/internal/classifier"
	"github.com/google/uuid"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func newTestMux(store blob.Store, provider classifier.Provider, maxMB int) *http.ServeMux {
	h := NewHandlers(NewService(store, provider, maxMB, "image/jpeg,image/png"))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/images", h.HandleUpload)
	mux.HandleFunc("GET /v1/images/{id}", h.HandleDownload)
	return mux
}

func multipartRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndDownload(t *testing.T) {
	store := blob.NewMemoryStore()
	mux := newTestMux(store, classifier.NewMockProvider(), 10)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, multipartRequest(t, "pothole-near-school.jpg", "image/jpeg", jpegBytes))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp UploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := uuid.Parse(resp.Handle); err != nil {
		t.Fatalf("handle is not a uuid: %q", resp.Handle)
	}
	if resp.URL != "/v1/images/"+resp.Handle {
		t.Errorf("unexpected url %s", resp.URL)
	}
	if resp.Analysis == nil || resp.Analysis.SuggestedType != "pothole" {
		t.Errorf("expected pothole suggestion, got %+v", resp.Analysis)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, resp.URL, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), jpegBytes) {
		t.Error("downloaded bytes differ from upload")
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", ct)
	}
}

func TestUploadSniffsOctetStream(t *testing.T) {
	mux := newTestMux(blob.NewMemoryStore(), classifier.NoneProvider{}, 10)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, multipartRequest(t, "photo", "application/octet-stream", jpegBytes))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp UploadResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.ContentType != "image/jpeg" {
		t.Errorf("Expected sniffed image/jpeg, got %s", resp.ContentType)
	}
	if resp.Analysis != nil {
		t.Errorf("Expected no analysis with classifier disabled, got %+v", resp.Analysis)
	}
}

func TestUploadRejections(t *testing.T) {
	mux := newTestMux(blob.NewMemoryStore(), nil, 1)

	t.Run("UnsupportedMime", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, multipartRequest(t, "notes.txt", "text/plain", []byte("hello")))
		if w.Code != http.StatusUnsupportedMediaType {
			t.Errorf("Expected status 415, got %d", w.Code)
		}
	})

	t.Run("TooLarge", func(t *testing.T) {
		big := append(append([]byte{}, jpegBytes...), make([]byte, 1<<20)...)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, multipartRequest(t, "big.jpg", "image/jpeg", big))
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected status 413, got %d", w.Code)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		mw.WriteField("title", "no file")
		mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/v1/images", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestDownloadNotFound(t *testing.T) {
	mux := newTestMux(blob.NewMemoryStore(), nil, 10)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/images/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/images/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

type redirectStore struct {
	*blob.MemoryStore
}

func (redirectStore) PresignGet(ctx context.Context, key string, ttlSeconds int) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

func TestDownloadRedirectsWhenPresignAvailable(t *testing.T) {
	mux := newTestMux(redirectStore{blob.NewMemoryStore()}, nil, 10)
	id := uuid.New()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/images/"+id.String(), nil))
	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://cdn.example.com/images/"+id.String() {
		t.Errorf("unexpected redirect %s", loc)
	}
}

type failingProvider struct{}

func (failingProvider) Suggest(ctx context.Context, hint classifier.ImageHint) (classifier.Suggestion, error) {
	return classifier.Suggestion{}, errors.New("model offline")
}

func TestUploadSurvivesClassifierFailure(t *testing.T) {
	mux := newTestMux(blob.NewMemoryStore(), failingProvider{}, 10)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, multipartRequest(t, "pothole.jpg", "image/jpeg", jpegBytes))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
}
