package assistant

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed script.yaml
var defaultScript []byte

// Script holds every canned reply of the assistant.
type Script struct {
	Greeting       string   `yaml:"greeting"`
	Help           string   `yaml:"help"`
	AdminHelp      string   `yaml:"admin_help"`
	Unknown        string   `yaml:"unknown"`
	AdminOnly      string   `yaml:"admin_only"`
	DefaultActions []Action `yaml:"default_actions"`
	FAQ            []FAQ    `yaml:"faq"`
	Intents        []Intent `yaml:"intents"`
	IntentTriggers []string `yaml:"intent_triggers"`
}

type FAQ struct {
	Name    string   `yaml:"name"`
	All     []string `yaml:"all"`
	Any     []string `yaml:"any"`
	Answer  string   `yaml:"answer"`
	Actions []Action `yaml:"actions"`
}

type Intent struct {
	Type string   `yaml:"type"`
	Any  []string `yaml:"any"`
}

func (f FAQ) matches(msg string) bool {
	for _, p := range f.All {
		if !strings.Contains(msg, p) {
			return false
		}
	}
	return len(f.Any) == 0 || containsAny(msg, f.Any)
}

// LoadScript parses a YAML script and checks the required replies.
func LoadScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse assistant script: %w", err)
	}
	if strings.TrimSpace(s.Help) == "" || strings.TrimSpace(s.Unknown) == "" {
		return nil, errors.New("assistant script: help and unknown replies are required")
	}
	for i, f := range s.FAQ {
		if len(f.All) == 0 && len(f.Any) == 0 {
			return nil, fmt.Errorf("assistant script: faq[%d] %q has no phrases", i, f.Name)
		}
		s.FAQ[i].Answer = strings.TrimSpace(f.Answer)
	}
	return &s, nil
}

// DefaultScript returns the script compiled into the binary.
func DefaultScript() *Script {
	s, err := LoadScript(defaultScript)
	if err != nil {
		panic(err)
	}
	return s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
