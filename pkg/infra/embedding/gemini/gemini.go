package gemini

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/embedding"
)

const defaultModel = "gemini-embedding-001"

type creator struct {
	apiKey string
	logger *logrus.Logger

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewCreator(apiKey string, logger *logrus.Logger) embedding.Creator {
	return &creator{
		apiKey: apiKey,
		logger: logger,
	}
}

func (c *creator) Generate(ctx context.Context, text, model string) (*embedding.Embedding, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini embeddings: API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	result, err := client.Models.EmbedContent(ctx, model, genai.Text(text), nil)
	if err != nil {
		c.logger.WithError(err).Error("gemini embeddings request failed")
		return nil, fmt.Errorf("gemini embeddings request failed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embeddings from API")
	}

	values := result.Embeddings[0].Values
	vector := make([]float64, len(values))
	for i, v := range values {
		vector[i] = float64(v)
	}
	embedding.Normalize(vector)

	return &embedding.Embedding{
		Value:     vector,
		CreatedAt: time.Now(),
	}, nil
}

func (c *creator) getClient(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		c.client, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return c.client, c.initErr
}
