package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/fdg312/cityfix/internal/blob"
	"github.com/fdg312/cityfix/internal/classifier"
	"github.com/google/uuid"
)

var (
	ErrImageNotFound   = errors.New("image not found")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedMime = errors.New("unsupported mime type")
	ErrEmptyFile       = errors.New("file is empty")
)

const presignTTLSeconds = 900

// Service stores report photos and asks the classifier about them.
type Service struct {
	store        blob.Store
	classifier   classifier.Provider
	maxUploadMB  int
	allowedMimes []string
}

// NewService creates a new images service. A nil classifier disables
// suggestions.
func NewService(store blob.Store, provider classifier.Provider, maxUploadMB int, allowedMimes string) *Service {
	mimes := strings.Split(allowedMimes, ",")
	for i, m := range mimes {
		mimes[i] = strings.TrimSpace(m)
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}

	return &Service{
		store:        store,
		classifier:   provider,
		maxUploadMB:  maxUploadMB,
		allowedMimes: mimes,
	}
}

// MaxUploadBytes is the largest accepted upload.
func (s *Service) MaxUploadBytes() int64 {
	return int64(s.maxUploadMB) * 1024 * 1024
}

// Upload validates and stores a photo, then attaches the classifier's
// suggestion when one is available.
func (s *Service) Upload(ctx context.Context, fileHeader *multipart.FileHeader) (*UploadResponse, error) {
	if fileHeader.Size > s.MaxUploadBytes() {
		return nil, ErrFileTooLarge
	}
	if fileHeader.Size == 0 {
		return nil, ErrEmptyFile
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !s.isAllowedMime(contentType) {
		return nil, ErrUnsupportedMime
	}

	id := uuid.New()
	if _, err := s.store.PutObject(ctx, keyPrefix+id.String(), data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	resp := &UploadResponse{
		Handle:      id.String(),
		URL:         "/v1/images/" + id.String(),
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}

	if s.classifier != nil {
		suggestion, err := s.classifier.Suggest(ctx, classifier.ImageHint{
			Filename:    fileHeader.Filename,
			ContentType: contentType,
		})
		switch {
		case err == nil:
			resp.Analysis = &suggestion
		case !errors.Is(err, classifier.ErrDisabled):
			log.Printf("WARN images: classifier failed id=%s: %v", id, err)
		}
	}

	return resp, nil
}

// DownloadURL returns a URL to redirect to, or "" when the bytes must be
// served directly.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	url, err := s.store.PresignGet(ctx, keyPrefix+id.String(), presignTTLSeconds)
	if errors.Is(err, blob.ErrPresignUnsupported) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return url, nil
}

// Get returns the stored photo.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*blob.Object, error) {
	obj, err := s.store.GetObject(ctx, keyPrefix+id.String())
	if errors.Is(err, blob.ErrNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *Service) isAllowedMime(contentType string) bool {
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, allowed := range s.allowedMimes {
		if strings.EqualFold(base, allowed) {
			return true
		}
	}
	return false
}
