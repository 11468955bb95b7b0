package classifier

import (
	"context"
	"errors"
)

// ErrDisabled is returned by providers that never produce suggestions.
var ErrDisabled = errors.New("classifier: disabled")

// Provider suggests a report type and priority for an uploaded photo.
// Suggestions are advisory; the citizen's chosen type always wins.
type Provider interface {
	Suggest(ctx context.Context, hint ImageHint) (Suggestion, error)
}

// ImageHint describes the uploaded photo.
type ImageHint struct {
	Filename    string
	ContentType string
}

type Suggestion struct {
	SuggestedType     string  `json:"suggested_type"`
	SuggestedPriority string  `json:"suggested_priority"`
	Confidence        float64 `json:"confidence"`
	Description       string  `json:"description"`
}

// NoneProvider is used when CLASSIFIER_MODE=none.
type NoneProvider struct{}

func (NoneProvider) Suggest(ctx context.Context, hint ImageHint) (Suggestion, error) {
	return Suggestion{}, ErrDisabled
}
