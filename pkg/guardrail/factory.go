package guardrail

import (
	"context"
	"errors"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/embedding"
	domain "github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
	"github.com/PromptSentinel/SentinelGate/pkg/guardrail/detector"
	"github.com/sirupsen/logrus"
)

const defaultSemanticThreshold = 0.8

var errNoEmbeddingBackend = errors.New("no embedding backend configured")

// Builder assembles engines from profiles. Detectors run in a fixed order:
// PII redaction, then topics, secrets, injection, and the semantic check
// last because it is the only one that leaves the process.
type Builder struct {
	creator        embedding.Creator
	embeddingModel string
	logger         *logrus.Logger
}

// NewBuilder wires the embedding backend used by the semantic detector.
// creator may be nil when no embedding provider is configured; profiles
// asking for semantic blocking then degrade to the remaining detectors.
func NewBuilder(creator embedding.Creator, embeddingModel string, logger *logrus.Logger) *Builder {
	return &Builder{
		creator:        creator,
		embeddingModel: embeddingModel,
		logger:         logger,
	}
}

// Build compiles every enabled detector once. An optional detector that
// fails to initialize is disabled and logged, never fatal: a profile with a
// broken embedding backend still ships its structural detectors.
func (b *Builder) Build(ctx context.Context, profile domain.Profile) *Engine {
	settings := profile.Detectors
	var (
		detectors []domain.Detector
		maxMatch  int
	)

	if settings.PII.Enabled {
		pii := detector.NewPII(settings.PII)
		detectors = append(detectors, pii)
		b.logger.WithFields(logrus.Fields{
			"profile":  profile.Name,
			"patterns": len(settings.PII.Patterns),
		}).Info("pii detector enabled")
	}

	if settings.Topics.Enabled {
		topic := detector.NewTopic(settings.Topics)
		if topic.MaxPhraseLength() > maxMatch {
			maxMatch = topic.MaxPhraseLength()
		}
		detectors = append(detectors, topic)
		b.logger.WithFields(logrus.Fields{
			"profile": profile.Name,
			"phrases": len(settings.Topics.BlockList),
		}).Info("topic detector enabled")
	}

	if settings.Secrets.Enabled {
		detectors = append(detectors, detector.NewSecret())
	}

	if settings.Injection.Enabled {
		for _, kw := range settings.Injection.Keywords {
			if len(kw) > maxMatch {
				maxMatch = len(kw)
			}
		}
		detectors = append(detectors, detector.NewInjection(settings.Injection.Keywords))
	}

	if settings.Semantic.Enabled && len(settings.Semantic.ForbiddenIntents) > 0 {
		threshold := settings.Semantic.Threshold
		if threshold == 0 {
			threshold = defaultSemanticThreshold
		}
		sem, err := b.buildSemantic(ctx, settings.Semantic.ForbiddenIntents, threshold)
		if err != nil {
			b.logger.WithError(err).WithField("profile", profile.Name).
				Warn("semantic detector disabled")
		} else {
			detectors = append(detectors, sem)
			b.logger.WithFields(logrus.Fields{
				"profile":   profile.Name,
				"intents":   len(settings.Semantic.ForbiddenIntents),
				"threshold": threshold,
			}).Info("semantic detector enabled")
		}
	}

	return NewEngine(profile.Name, detectors, maxMatch, b.logger)
}

func (b *Builder) buildSemantic(ctx context.Context, intents []string, threshold float64) (domain.Detector, error) {
	if b.creator == nil {
		return nil, domain.NewConfigError("semantic_blocking", errNoEmbeddingBackend)
	}
	return detector.NewSemantic(ctx, b.creator, b.embeddingModel, intents, threshold)
}
