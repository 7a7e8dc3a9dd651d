package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/PromptSentinel/SentinelGate/pkg/guardrail"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/events"
)

// ErrProfileNotFound reports a switch request naming a file that does not
// exist in the profiles directory.
var ErrProfileNotFound = errors.New("profile not found")

// Switcher hot-swaps the active guardrail profile. Switch announces the
// change to peer replicas; Apply is the receiving side and stays local.
type Switcher interface {
	Switch(ctx context.Context, name string) (string, error)
	Apply(ctx context.Context, name string) (string, error)
	Active() string
}

type switcher struct {
	logger    *logrus.Logger
	dir       string
	builder   *guardrail.Builder
	handle    *guardrail.Handle
	publisher events.Publisher

	mu     sync.Mutex
	active string
}

// NewSwitcher wires profile activation. publisher may be nil on
// single-replica deployments; switches then stay local.
func NewSwitcher(
	logger *logrus.Logger,
	dir string,
	activeName string,
	builder *guardrail.Builder,
	handle *guardrail.Handle,
	publisher events.Publisher,
) Switcher {
	return &switcher{
		logger:    logger,
		dir:       dir,
		builder:   builder,
		handle:    handle,
		publisher: publisher,
		active:    filepath.Base(activeName),
	}
}

func (s *switcher) Switch(ctx context.Context, name string) (string, error) {
	return s.switchProfile(ctx, name, true)
}

func (s *switcher) Apply(ctx context.Context, name string) (string, error) {
	return s.switchProfile(ctx, name, false)
}

func (s *switcher) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *switcher) switchProfile(ctx context.Context, name string, publish bool) (string, error) {
	// Only files inside the profiles directory are loadable.
	safeName := filepath.Base(name)
	path := filepath.Join(s.dir, safeName)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrProfileNotFound
		}
		return "", err
	}

	profile, err := guardrail.LoadProfileFile(path)
	if err != nil {
		// The previous engine stays active.
		return "", err
	}
	engine := s.builder.Build(ctx, profile)

	s.mu.Lock()
	s.handle.Swap(engine)
	s.active = safeName
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"profile": profile.Name,
		"file":    safeName,
	}).Info("guardrail profile activated")

	if publish && s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.ProfileSwitchedEvent{ProfileName: safeName}); err != nil {
			s.logger.WithError(err).Warn("failed to publish profile switch event")
		}
	}
	return safeName, nil
}
