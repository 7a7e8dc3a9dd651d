package guardrail

import (
	"fmt"
	"strings"
)

type Action string

const (
	ActionAllowed  Action = "allowed"
	ActionRedacted Action = "redacted"
	ActionBlocked  Action = "blocked"
)

// Kind enumerates the closed set of detectors the engine knows how to run.
type Kind string

const (
	KindPII       Kind = "pii"
	KindTopics    Kind = "topics"
	KindSecrets   Kind = "secrets"
	KindInjection Kind = "injection"
	KindSemantic  Kind = "semantic"
)

// Mode is a detector's blocking policy. Redacting detectors scrub matches
// and let the request continue; blocking detectors fail it. The merge step
// dispatches on this field only, never on reason-string contents.
type Mode string

const (
	ModeRedact Mode = "redact"
	ModeBlock  Mode = "block"
)

// Finding is one fired rule. Rule carries the audit-facing description,
// e.g. "PII:EMAIL", "Topic:fraud,insider trading",
// "Semantic:Intent violation (0.87)".
type Finding struct {
	Detector Kind
	Rule     string
	Mode     Mode
	Score    float64
}

// Verdict is the outcome of one full scan. A blocked verdict still carries
// the PII-redacted intermediate text so audit paths never see raw PII.
type Verdict struct {
	Valid         bool
	SanitizedText string
	Reason        string
	Action        Action
	Score         float64
}

// BlockMarker is the one fragment emitted in place of suppressed content
// when a scan blocks mid-stream, and the completion body substituted for a
// blocked non-streaming response.
func BlockMarker(reason string) string {
	if reason == "" {
		reason = "Unknown"
	}
	return fmt.Sprintf("[BLOCKED BY SECURITY POLICY: %s]", reason)
}

// MergeFindings folds detector findings into a single verdict over the
// final running text. Only redact-mode findings keep the request valid.
func MergeFindings(text string, findings []Finding) Verdict {
	if len(findings) == 0 {
		return Verdict{Valid: true, SanitizedText: text, Action: ActionAllowed}
	}

	var (
		rules   = make([]string, 0, len(findings))
		score   float64
		blocked bool
	)
	for _, f := range findings {
		rules = append(rules, f.Rule)
		if f.Mode == ModeBlock {
			blocked = true
		}
		if f.Score > score {
			score = f.Score
		}
	}

	if !blocked {
		return Verdict{
			Valid:         true,
			SanitizedText: text,
			Reason:        "PII Redacted",
			Action:        ActionRedacted,
			Score:         score,
		}
	}

	return Verdict{
		Valid:         false,
		SanitizedText: text,
		Reason:        strings.Join(rules, ", "),
		Action:        ActionBlocked,
		Score:         score,
	}
}
