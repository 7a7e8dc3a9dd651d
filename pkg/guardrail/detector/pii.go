package detector

import (
	"context"
	"fmt"
	"regexp"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
)

// Known PII pattern kinds. Profiles enable a subset by name; names outside
// this set are ignored. List order in the profile is match order, so more
// specific patterns should come first when they can overlap.
var piiPatterns = map[string]*regexp.Regexp{
	"EMAIL":         regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	"PHONE":         regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
	"SSN":           regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	"CREDIT_CARD":   regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{1,4}\b`),
	"IP_ADDRESS":    regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
	"IPV6_ADDRESS":  regexp.MustCompile(`\b(?:[a-fA-F0-9]{1,4}:){2,7}[a-fA-F0-9]{1,4}\b`),
	"IBAN":          regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
	"MAC_ADDRESS":   regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}\b`),
	"CRYPTO_WALLET": regexp.MustCompile(`\b(?:bc1|[13])[a-zA-HJ-NP-Z0-9]{25,39}\b|\b0x[a-fA-F0-9]{40}\b`),
}

type piiEntry struct {
	name    string
	pattern *regexp.Regexp
}

// PII replaces matches with fixed placeholders and lets the request
// continue. This is the only detector that rewrites the running text.
type PII struct {
	patterns []piiEntry
}

func NewPII(settings guardrail.PIISettings) *PII {
	d := &PII{}
	for _, name := range settings.Patterns {
		pattern, ok := piiPatterns[name]
		if !ok {
			continue
		}
		d.patterns = append(d.patterns, piiEntry{name: name, pattern: pattern})
	}
	return d
}

// KnownPIIPatterns reports the valid pattern names.
func KnownPIIPatterns() []string {
	names := make([]string, 0, len(piiPatterns))
	for name := range piiPatterns {
		names = append(names, name)
	}
	return names
}

func (d *PII) Kind() guardrail.Kind { return guardrail.KindPII }
func (d *PII) Mode() guardrail.Mode { return guardrail.ModeRedact }

func (d *PII) Inspect(_ context.Context, text string) (string, []guardrail.Finding, error) {
	out := text
	var findings []guardrail.Finding
	for _, e := range d.patterns {
		if !e.pattern.MatchString(out) {
			continue
		}
		out = e.pattern.ReplaceAllString(out, fmt.Sprintf("<%s_REDACTED>", e.name))
		findings = append(findings, guardrail.Finding{
			Detector: guardrail.KindPII,
			Rule:     "PII:" + e.name,
			Mode:     guardrail.ModeRedact,
		})
	}
	return out, findings, nil
}
