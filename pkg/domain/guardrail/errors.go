package guardrail

import "fmt"

// ConfigError wraps a profile parse or validation failure. Callers recover
// by keeping the previous engine (on switch) or falling back to the
// injection-only profile (on boot).
type ConfigError struct {
	Source string
	Err    error
}

func NewConfigError(source string, err error) *ConfigError {
	return &ConfigError{Source: source, Err: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid guardrails profile %q: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
