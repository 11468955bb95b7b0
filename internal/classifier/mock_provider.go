package classifier

import (
	"context"
	"fmt"
	"strings"
)

const (
	matchConfidence    = 0.9
	fallbackConfidence = 0.7
)

type rule struct {
	keywords []string
	typ      string
	priority string
}

// Checked in order; the first rule whose keyword occurs in the filename wins.
var rules = []rule{
	{[]string{"pothole"}, "pothole", "medium"},
	{[]string{"water", "leak"}, "water_leak", "high"},
	{[]string{"light"}, "street_light", "low"},
	{[]string{"graffiti"}, "graffiti", "low"},
	{[]string{"trash"}, "trash", "medium"},
	{[]string{"sidewalk"}, "sidewalk", "medium"},
	{[]string{"traffic"}, "traffic_light", "high"},
	{[]string{"emergency", "fire", "gas"}, "emergency", "high"},
}

// MockProvider guesses from the filename alone. Deterministic.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Suggest(ctx context.Context, hint ImageHint) (Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return Suggestion{}, err
	}

	name := strings.ToLower(hint.Filename)
	typ, priority, confidence := "other", "medium", fallbackConfidence
	for _, r := range rules {
		if containsAny(name, r.keywords) {
			typ, priority, confidence = r.typ, r.priority, matchConfidence
			break
		}
	}

	return Suggestion{
		SuggestedType:     typ,
		SuggestedPriority: priority,
		Confidence:        confidence,
		Description: fmt.Sprintf("Photo analysis suggests this is a %s issue with %s priority.",
			strings.ReplaceAll(typ, "_", " "), priority),
	}, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
