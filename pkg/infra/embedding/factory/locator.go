package factory

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/PromptSentinel/SentinelGate/pkg/config"
	"github.com/PromptSentinel/SentinelGate/pkg/domain/embedding"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/embedding/bedrock"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/embedding/gemini"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/embedding/openai"
)

const (
	OpenAIProvider  = "openai"
	GeminiProvider  = "gemini"
	BedrockProvider = "bedrock"
)

type EmbeddingServiceLocator struct {
	logger    *logrus.Logger
	providers config.ProvidersConfig
	embedding config.EmbeddingConfig
}

func NewServiceLocator(
	logger *logrus.Logger,
	providers config.ProvidersConfig,
	embeddingCfg config.EmbeddingConfig,
) *EmbeddingServiceLocator {
	return &EmbeddingServiceLocator{
		logger:    logger,
		providers: providers,
		embedding: embeddingCfg,
	}
}

func (l *EmbeddingServiceLocator) GetService(provider string) (embedding.Creator, error) {
	switch provider {
	case OpenAIProvider:
		return openai.NewCreator(l.providers.OpenAI.APIKey, l.logger), nil
	case GeminiProvider:
		return gemini.NewCreator(l.providers.Google.APIKey, l.logger), nil
	case BedrockProvider:
		return bedrock.NewCreator(l.embedding.AwsRegion, l.logger), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
