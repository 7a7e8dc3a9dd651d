package guardrail

import (
	"context"

	domain "github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
	"github.com/sirupsen/logrus"
)

// Engine runs an immutable, ordered detector stack over one running text
// value. Switching profiles builds a whole new Engine; a live one is never
// mutated.
type Engine struct {
	profileName string
	detectors   []domain.Detector
	maxMatch    int
	logger      *logrus.Logger
}

func NewEngine(profileName string, detectors []domain.Detector, maxMatch int, logger *logrus.Logger) *Engine {
	return &Engine{
		profileName: profileName,
		detectors:   detectors,
		maxMatch:    maxMatch,
		logger:      logger,
	}
}

func (e *Engine) ProfileName() string { return e.profileName }

// MaxMatchLength is the longest literal phrase any blocking detector can
// match. The streaming sanitizer uses it as a floor for its release
// watermark so a phrase split across deltas cannot slip through.
func (e *Engine) MaxMatchLength() int { return e.maxMatch }

// Validate scans inbound prompt text.
func (e *Engine) Validate(ctx context.Context, text string) domain.Verdict {
	return e.scan(ctx, text, "input")
}

// ValidateOutput scans completion text with the same detector stack.
func (e *Engine) ValidateOutput(ctx context.Context, text string) domain.Verdict {
	return e.scan(ctx, text, "output")
}

func (e *Engine) scan(ctx context.Context, text, direction string) domain.Verdict {
	running := text
	var findings []domain.Finding
	for _, d := range e.detectors {
		out, fired, err := d.Inspect(ctx, running)
		if err != nil {
			// A failing backend skips its detector for this call only.
			e.logger.WithError(err).WithFields(logrus.Fields{
				"profile":   e.profileName,
				"detector":  d.Kind(),
				"direction": direction,
			}).Warn("detector backend failure, skipping")
			continue
		}
		running = out
		findings = append(findings, fired...)
	}
	return domain.MergeFindings(running, findings)
}
