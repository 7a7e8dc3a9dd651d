package guardrail

import (
	"errors"
	"fmt"
)

const FallbackProfileName = "FALLBACK"

// Profile is a named bundle of detector configuration. It is immutable once
// loaded; switching profiles always builds a whole new engine.
type Profile struct {
	Name        string           `mapstructure:"profile_name"`
	Description string           `mapstructure:"description"`
	Detectors   DetectorSettings `mapstructure:"detectors"`
}

type DetectorSettings struct {
	PII       PIISettings       `mapstructure:"pii"`
	Topics    TopicsSettings    `mapstructure:"topics"`
	Secrets   SecretsSettings   `mapstructure:"secrets"`
	Injection InjectionSettings `mapstructure:"injection"`
	Semantic  SemanticSettings  `mapstructure:"semantic_blocking"`
}

type PIISettings struct {
	Enabled  bool     `mapstructure:"enabled"`
	Patterns []string `mapstructure:"patterns"`
}

type TopicsSettings struct {
	Enabled   bool     `mapstructure:"enabled"`
	BlockList []string `mapstructure:"block_list"`
}

type SecretsSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

type InjectionSettings struct {
	Enabled  bool     `mapstructure:"enabled"`
	Keywords []string `mapstructure:"keywords"`
}

type SemanticSettings struct {
	Enabled          bool     `mapstructure:"enabled"`
	ForbiddenIntents []string `mapstructure:"forbidden_intents"`
	Threshold        float64  `mapstructure:"threshold"`
}

func (p *Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile_name is required")
	}
	s := p.Detectors.Semantic
	if s.Enabled {
		if s.Threshold < 0 || s.Threshold > 1 {
			return fmt.Errorf("semantic threshold must be between 0 and 1, got %v", s.Threshold)
		}
	}
	return nil
}

// FallbackProfile is the safety floor applied when a profile fails to load:
// the injection detector alone, never an unprotected gateway.
func FallbackProfile() Profile {
	return Profile{
		Name: FallbackProfileName,
		Detectors: DetectorSettings{
			Injection: InjectionSettings{Enabled: true},
		},
	}
}
