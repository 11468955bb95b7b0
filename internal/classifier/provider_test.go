package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/fdg312/cityfix/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProviderKeywords(t *testing.T) {
	cases := []struct {
		filename string
		typ      string
		priority string
	}{
		{"Pothole_MG_Road.jpg", "pothole", "medium"},
		{"burst-water-main.png", "water_leak", "high"},
		{"pipe_leak.heic", "water_leak", "high"},
		{"broken-light.jpg", "street_light", "low"},
		{"graffiti.jpg", "graffiti", "low"},
		{"trash-pile.jpg", "trash", "medium"},
		{"cracked_sidewalk.jpg", "sidewalk", "medium"},
		{"traffic-signal.jpg", "traffic_light", "high"},
		// "light" is checked before "traffic".
		{"traffic_light.jpg", "street_light", "low"},
		{"gas-smell.jpg", "emergency", "high"},
		{"fire.jpg", "emergency", "high"},
	}

	p := NewMockProvider()
	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			s, err := p.Suggest(context.Background(), ImageHint{Filename: tc.filename, ContentType: "image/jpeg"})
			require.NoError(t, err)
			assert.Equal(t, tc.typ, s.SuggestedType)
			assert.Equal(t, tc.priority, s.SuggestedPriority)
			assert.Equal(t, matchConfidence, s.Confidence)
			assert.NotEmpty(t, s.Description)
		})
	}
}

func TestMockProviderFallback(t *testing.T) {
	s, err := NewMockProvider().Suggest(context.Background(), ImageHint{Filename: "IMG_0042.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "other", s.SuggestedType)
	assert.Equal(t, "medium", s.SuggestedPriority)
	assert.Equal(t, fallbackConfidence, s.Confidence)
}

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider()
	a, _ := p.Suggest(context.Background(), ImageHint{Filename: "pothole.jpg"})
	b, _ := p.Suggest(context.Background(), ImageHint{Filename: "pothole.jpg"})
	assert.Equal(t, a, b)
}

func TestMockProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockProvider().Suggest(ctx, ImageHint{Filename: "pothole.jpg"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProvider(t *testing.T) {
	_, ok := NewProvider(&config.Config{}).(*MockProvider)
	assert.True(t, ok, "empty mode defaults to mock")

	p := NewProvider(&config.Config{ClassifierMode: ModeNone})
	_, err := p.Suggest(context.Background(), ImageHint{Filename: "pothole.jpg"})
	assert.True(t, errors.Is(err, ErrDisabled))
}
