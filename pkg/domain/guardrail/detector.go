package guardrail

import "context"

// Detector is one content-policy check. Implementations are immutable after
// construction; Inspect must be safe for concurrent use.
//
// Inspect receives the current running text and returns the text to feed to
// later detectors (only the PII detector rewrites it) plus any findings. A
// returned error means the detector's backend failed for this call; the
// engine logs it and treats the detector as a no-op, it never aborts the
// scan.
type Detector interface {
	Kind() Kind
	Mode() Mode
	Inspect(ctx context.Context, text string) (string, []Finding, error)
}
