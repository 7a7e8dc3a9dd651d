package guardrail

import (
	"context"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	domain "github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
)

// LoadProfileFile reads and validates one profile YAML.
func LoadProfileFile(path string) (domain.Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return domain.Profile{}, domain.NewConfigError(path, err)
	}
	var profile domain.Profile
	if err := mapstructure.Decode(v.AllSettings(), &profile); err != nil {
		return domain.Profile{}, domain.NewConfigError(path, err)
	}
	if err := profile.Validate(); err != nil {
		return domain.Profile{}, domain.NewConfigError(path, err)
	}
	return profile, nil
}

// BuildFromFile is the boot path: a profile that cannot be loaded degrades
// to the injection-only fallback so the gateway never starts unprotected.
// Runtime switches go through LoadProfileFile instead and keep the previous
// engine on failure.
func (b *Builder) BuildFromFile(ctx context.Context, path string) *Engine {
	profile, err := LoadProfileFile(path)
	if err != nil {
		b.logger.WithError(err).WithField("path", path).
			Error("profile load failed, falling back to injection-only profile")
		profile = domain.FallbackProfile()
	}
	return b.Build(ctx, profile)
}
