package stream

import (
	"context"
	"strings"

	domain "github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
	"github.com/PromptSentinel/SentinelGate/pkg/guardrail"
)

const (
	defaultReleaseWatermark = 48
	defaultTailRetention    = 24
	defaultWidenAfterDeltas = 32

	// In widened mode the pending window is rescanned every Nth delta
	// instead of every delta.
	widenedScanEvery = 4

	// A window with no word boundary at all is force-released once it
	// exceeds this multiple of watermark+tail, so one giant unbroken
	// token cannot grow the buffer without bound.
	hardCapFactor = 4
)

// Config bounds the sanitizer's pending window.
type Config struct {
	// ReleaseWatermark is the minimum pending length before any release.
	ReleaseWatermark int
	// TailRetention is the minimum trailing length withheld at a release
	// so a phrase straddling the release point stays scannable.
	TailRetention int
	// WidenAfterDeltas is the run of non-blocking deltas after which
	// rescans widen to every few deltas instead of every delta.
	WidenAfterDeltas int
}

func (c Config) withDefaults() Config {
	if c.ReleaseWatermark <= 0 {
		c.ReleaseWatermark = defaultReleaseWatermark
	}
	if c.TailRetention <= 0 {
		c.TailRetention = defaultTailRetention
	}
	if c.WidenAfterDeltas <= 0 {
		c.WidenAfterDeltas = defaultWidenAfterDeltas
	}
	return c
}

// Sanitizer scans a live delta sequence through one engine. It keeps a
// single bounded pending window, rescans it whole on each delta, and only
// releases prefixes that a full scan has cleared. State is single-owner:
// one goroutine drives Process and finally either Flush or Close.
type Sanitizer struct {
	engine *guardrail.Engine

	watermark  int
	tail       int
	widenAfter int
	hardCap    int

	pending         string
	cleanStreak     int
	deltasSinceScan int
	suppressed      bool
	blockReason     string
	done            bool
}

func NewSanitizer(engine *guardrail.Engine, cfg Config) *Sanitizer {
	cfg = cfg.withDefaults()
	// Both bounds stretch to the longest blockable phrase so no match can
	// be split across a release.
	watermark := cfg.ReleaseWatermark
	if engine.MaxMatchLength() > watermark {
		watermark = engine.MaxMatchLength()
	}
	tail := cfg.TailRetention
	if engine.MaxMatchLength() > tail {
		tail = engine.MaxMatchLength()
	}
	return &Sanitizer{
		engine:     engine,
		watermark:  watermark,
		tail:       tail,
		widenAfter: cfg.WidenAfterDeltas,
		hardCap:    hardCapFactor * (watermark + tail),
	}
}

// Process consumes one upstream delta and returns zero or more safe
// fragments. After a block it keeps consuming deltas silently; the block
// marker has already been emitted exactly once.
func (s *Sanitizer) Process(ctx context.Context, delta string) []string {
	if s.done || s.suppressed || delta == "" {
		return nil
	}
	s.pending += delta
	s.deltasSinceScan++

	if s.cleanStreak >= s.widenAfter &&
		s.deltasSinceScan < widenedScanEvery &&
		len(s.pending) < s.hardCap {
		return nil
	}
	s.deltasSinceScan = 0

	verdict := s.engine.ValidateOutput(ctx, s.pending)
	if verdict.Action == domain.ActionBlocked {
		s.suppressed = true
		s.blockReason = verdict.Reason
		s.pending = ""
		return []string{domain.BlockMarker(verdict.Reason)}
	}
	s.pending = verdict.SanitizedText
	s.cleanStreak++

	return s.release()
}

// Blocked reports whether the session tripped a blocking detector.
func (s *Sanitizer) Blocked() bool { return s.suppressed }

// BlockReason is the blocking verdict's reason, empty while clean.
func (s *Sanitizer) BlockReason() string { return s.blockReason }

// release emits the scanned prefix up to the last completed word, holding
// back the tail. Returns nil while the window is below the watermark.
func (s *Sanitizer) release() []string {
	if len(s.pending) <= s.watermark {
		return nil
	}
	cut := len(s.pending) - s.tail
	if cut <= 0 {
		return nil
	}
	if idx := strings.LastIndexAny(s.pending[:cut], " \t\n"); idx >= 0 {
		cut = idx + 1
	} else if len(s.pending) < s.hardCap {
		// No boundary yet; wait for one until the cap forces a release.
		return nil
	}
	frag := s.pending[:cut]
	s.pending = s.pending[cut:]
	if frag == "" {
		return nil
	}
	return []string{frag}
}

// Flush terminates the session at natural stream end: one last full scan,
// then an unconditional release with no tail retention. Must not be called
// on cancellation; Close covers that path.
func (s *Sanitizer) Flush(ctx context.Context) []string {
	if s.done {
		return nil
	}
	s.done = true
	if s.suppressed || s.pending == "" {
		s.pending = ""
		return nil
	}
	verdict := s.engine.ValidateOutput(ctx, s.pending)
	s.pending = ""
	if verdict.Action == domain.ActionBlocked {
		s.suppressed = true
		s.blockReason = verdict.Reason
		return []string{domain.BlockMarker(verdict.Reason)}
	}
	if verdict.SanitizedText == "" {
		return nil
	}
	return []string{verdict.SanitizedText}
}

// Close discards buffered state without the unconditional final release.
// This is the cancellation path: a disconnected client never receives the
// withheld tail, and no final scan runs.
func (s *Sanitizer) Close() {
	s.done = true
	s.pending = ""
}
