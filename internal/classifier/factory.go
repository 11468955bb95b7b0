package classifier

import (
	"strings"

	"github.com/fdg312/cityfix/internal/config"
)

const (
	ModeMock = "mock"
	ModeNone = "none"
)

func NewProvider(cfg *config.Config) Provider {
	mode := strings.ToLower(strings.TrimSpace(cfg.ClassifierMode))
	if mode == "" {
		mode = ModeMock
	}

	switch mode {
	case ModeNone:
		return NoneProvider{}
	default:
		return NewMockProvider()
	}
}
