package images

import "github.com/fdg312/cityfix/internal/classifier"

// UploadResponse is returned by POST /v1/images. Handle goes into the
// report's images list.
type UploadResponse struct {
	Handle      string                 `json:"handle"`
	URL         string                 `json:"url"`
	ContentType string                 `json:"content_type"`
	SizeBytes   int64                  `json:"size_bytes"`
	Analysis    *classifier.Suggestion `json:"analysis,omitempty"`
}

const keyPrefix = "images/"
