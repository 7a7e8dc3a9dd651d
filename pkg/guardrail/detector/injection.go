package detector

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
)

// Default prompt-injection heuristics. Profiles may replace the whole set
// with a literal keyword list; they cannot extend it pattern by pattern.
var injectionPatterns = map[string]*regexp.Regexp{
	"ignore_instructions": regexp.MustCompile(`(?i)\b(?:ignore|disregard|forget|override)\s+(?:all\s+|any\s+|the\s+)?(?:previous|prior|above|earlier|preceding|system)\s+(?:instructions?|prompts?|rules?|directives?|context)`),
	"instruction_override": regexp.MustCompile(`(?i)(?:\bnew\s+instructions?\s*:|\byour\s+(?:new\s+)?(?:instructions?|rules?|task)\s+(?:are|is)\s+(?:now\s+)?(?:as\s+follows|to)\b)`),
	"system_prompt_leak": regexp.MustCompile(`(?i)\b(?:reveal|show|print|repeat|output|display|leak)\b[^.\n]{0,40}\b(?:system\s+prompt|initial\s+instructions?|hidden\s+(?:instructions?|prompt)|original\s+instructions?)`),
	"role_manipulation": regexp.MustCompile(`(?i)(?:\byou\s+are\s+no\s+longer\b|\bpretend\s+(?:to\s+be|you\s+are)\b|\bact\s+as\s+(?:if\s+you|though\s+you)\b|\bfrom\s+now\s+on\s+you\s+(?:are|will)\b)`),
	"jailbreak": regexp.MustCompile(`(?i)\b(?:jailbreak|jailbroken|developer\s+mode|DAN\s+mode|do\s+anything\s+now|no\s+(?:restrictions|filters|guidelines)\s+mode)\b`),
}

// Injection flags attempts to subvert the model's instructions. It is the
// one detector that must always be constructible with zero configuration.
type Injection struct {
	names    []string
	patterns map[string]*regexp.Regexp
}

// NewInjection builds the detector. A non-empty keywords list replaces the
// default heuristics with a single case-insensitive whole-word alternation.
func NewInjection(keywords []string) *Injection {
	patterns := injectionPatterns
	if len(keywords) > 0 {
		quoted := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			quoted = append(quoted, regexp.QuoteMeta(kw))
		}
		if len(quoted) > 0 {
			patterns = map[string]*regexp.Regexp{
				"keywords": regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
			}
		}
	}
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Injection{names: names, patterns: patterns}
}

func (d *Injection) Kind() guardrail.Kind { return guardrail.KindInjection }
func (d *Injection) Mode() guardrail.Mode { return guardrail.ModeBlock }

func (d *Injection) Inspect(_ context.Context, text string) (string, []guardrail.Finding, error) {
	var findings []guardrail.Finding
	for _, name := range d.names {
		if !d.patterns[name].MatchString(text) {
			continue
		}
		findings = append(findings, guardrail.Finding{
			Detector: guardrail.KindInjection,
			Rule:     "Injection:" + name,
			Mode:     guardrail.ModeBlock,
		})
	}
	return text, findings, nil
}
