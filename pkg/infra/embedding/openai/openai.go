package openai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/embedding"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultModel = "text-embedding-3-small"

type creator struct {
	apiKey     string
	logger     *logrus.Logger
	opts       []option.RequestOption
	clientPool *sync.Map
	sf         singleflight.Group
}

// NewCreator builds an OpenAI embedding backend. Extra request options are
// for tests (base URL overrides); production callers pass none.
func NewCreator(apiKey string, logger *logrus.Logger, opts ...option.RequestOption) embedding.Creator {
	return &creator{
		apiKey:     apiKey,
		logger:     logger,
		opts:       opts,
		clientPool: &sync.Map{},
	}
}

func (c *creator) Generate(ctx context.Context, text, model string) (*embedding.Embedding, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai embeddings: API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client := c.getOrCreateClient(c.apiKey)

	resp, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		c.logger.WithError(err).Error("openai embeddings request failed")
		return nil, fmt.Errorf("openai embeddings request failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embeddings from API")
	}

	value := resp.Data[0].Embedding
	embedding.Normalize(value)

	return &embedding.Embedding{
		Value:     value,
		CreatedAt: time.Now(),
	}, nil
}

func (c *creator) getOrCreateClient(apiKey string) *openai.Client {
	if v, ok := c.clientPool.Load(apiKey); ok {
		if client, ok := v.(*openai.Client); ok {
			return client
		}
	}
	v, err, _ := c.sf.Do(apiKey, func() (any, error) {
		if v2, ok := c.clientPool.Load(apiKey); ok {
			return v2, nil
		}
		cli := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.opts...)...)
		c.clientPool.Store(apiKey, &cli)
		return &cli, nil
	})
	if err != nil {
		cli := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.opts...)...)
		return &cli
	}
	if client, ok := v.(*openai.Client); ok {
		return client
	}
	cli := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.opts...)...)
	return &cli
}
