package detector

import (
	"context"
	"regexp"
	"sort"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
)

// Credential shapes worth refusing outright. Matching text is blocked, not
// masked: a prompt carrying live secrets should never reach a provider.
var secretPatterns = map[string]*regexp.Regexp{
	"AWS_ACCESS_KEY": regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	"PRIVATE_KEY":    regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY(?: BLOCK)?-----`),
	"API_KEY":        regexp.MustCompile(`\b(?:sk|pk|rk)-[A-Za-z0-9_-]{20,}\b`),
	"GITHUB_TOKEN":   regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),
	"SLACK_TOKEN":    regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`),
	"BEARER_TOKEN":   regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]{25,}=*`),
}

// Secret detects credential material in the PII-redacted text.
type Secret struct {
	names []string
}

func NewSecret() *Secret {
	names := make([]string, 0, len(secretPatterns))
	for name := range secretPatterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Secret{names: names}
}

func (d *Secret) Kind() guardrail.Kind { return guardrail.KindSecrets }
func (d *Secret) Mode() guardrail.Mode { return guardrail.ModeBlock }

func (d *Secret) Inspect(_ context.Context, text string) (string, []guardrail.Finding, error) {
	var findings []guardrail.Finding
	for _, name := range d.names {
		if !secretPatterns[name].MatchString(text) {
			continue
		}
		findings = append(findings, guardrail.Finding{
			Detector: guardrail.KindSecrets,
			Rule:     "Secret:" + name,
			Mode:     guardrail.ModeBlock,
		})
	}
	return text, findings, nil
}
