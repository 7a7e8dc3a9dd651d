package profile

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/PromptSentinel/SentinelGate/pkg/infra/events"
)

// SwitchSubscriber applies profile switches announced by peer replicas.
// Remote switches are applied, not re-published, so events never loop.
type SwitchSubscriber struct {
	logger   *logrus.Logger
	switcher Switcher
}

func NewSwitchSubscriber(logger *logrus.Logger, switcher Switcher) *SwitchSubscriber {
	return &SwitchSubscriber{
		logger:   logger,
		switcher: switcher,
	}
}

func (s *SwitchSubscriber) OnEvent(ctx context.Context, ev events.ProfileSwitchedEvent) error {
	if s.switcher.Active() == ev.ProfileName {
		// Our own announcement echoed back, or we already run this profile.
		return nil
	}

	if _, err := s.switcher.Apply(ctx, ev.ProfileName); err != nil {
		return fmt.Errorf("failed to apply remote profile switch to %q: %w", ev.ProfileName, err)
	}

	s.logger.WithField("profile", ev.ProfileName).Info("profile switched by peer replica")
	return nil
}
