package stream

import (
	"context"
	"errors"
	"io"

	"github.com/PromptSentinel/SentinelGate/pkg/guardrail"
)

// DeltaSource yields successive text deltas from an upstream provider
// stream. Next returns io.EOF at natural stream end; any other error is a
// transport failure.
type DeltaSource interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// Stream is the pull side of a sanitized session. Each Next call drains
// the source until the sanitizer yields fragments, then serves them one at
// a time. Buffer state has a single owner; Stream is not safe for
// concurrent callers.
type Stream struct {
	sanitizer *Sanitizer
	source    DeltaSource
	queue     []string
	finished  bool
}

func New(engine *guardrail.Engine, cfg Config, source DeltaSource) *Stream {
	return &Stream{
		sanitizer: NewSanitizer(engine, cfg),
		source:    source,
	}
}

// Next returns the next safe fragment, or io.EOF once the upstream has
// ended and every fragment has been served. Natural stream end triggers
// the sanitizer's flush; a context or transport error does not.
func (s *Stream) Next(ctx context.Context) (string, error) {
	for len(s.queue) == 0 {
		if s.finished {
			return "", io.EOF
		}
		if err := ctx.Err(); err != nil {
			s.sanitizer.Close()
			s.finished = true
			return "", err
		}
		delta, err := s.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.finished = true
			s.queue = append(s.queue, s.sanitizer.Flush(ctx)...)
			continue
		}
		if err != nil {
			s.sanitizer.Close()
			s.finished = true
			return "", err
		}
		s.queue = append(s.queue, s.sanitizer.Process(ctx, delta)...)
	}
	frag := s.queue[0]
	s.queue = s.queue[1:]
	return frag, nil
}

// Blocked reports whether the sanitizer suppressed the session.
func (s *Stream) Blocked() bool { return s.sanitizer.Blocked() }

// BlockReason is the blocking verdict's reason, empty while clean.
func (s *Stream) BlockReason() string { return s.sanitizer.BlockReason() }

// Close cancels the session. Buffered state is discarded, the withheld
// tail is never released, and the source is closed.
func (s *Stream) Close() error {
	s.sanitizer.Close()
	s.queue = nil
	s.finished = true
	return s.source.Close()
}
