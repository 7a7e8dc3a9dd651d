package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sirupsen/logrus"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/embedding"
)

const defaultModel = "amazon.titan-embed-text-v2:0"

type titanRequest struct {
	InputText string `json:"inputText"`
}

type titanResponse struct {
	Embedding []float64 `json:"embedding"`
}

// creator generates embeddings through Amazon Titan on Bedrock. Credentials
// come from the default AWS chain (env, shared config, instance role).
type creator struct {
	region string
	logger *logrus.Logger

	once    sync.Once
	client  *bedrockruntime.Client
	initErr error
}

func NewCreator(region string, logger *logrus.Logger) embedding.Creator {
	return &creator{
		region: region,
		logger: logger,
	}
}

func (c *creator) Generate(ctx context.Context, text, model string) (*embedding.Embedding, error) {
	if c.region == "" {
		return nil, fmt.Errorf("bedrock embeddings: AWS region is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	body, err := json.Marshal(titanRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal titan request: %w", err)
	}

	output, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		c.logger.WithError(err).Error("bedrock embeddings request failed")
		return nil, fmt.Errorf("bedrock embeddings request failed: %w", err)
	}

	var resp titanResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal titan response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embeddings from API")
	}

	embedding.Normalize(resp.Embedding)

	return &embedding.Embedding{
		Value:     resp.Embedding,
		CreatedAt: time.Now(),
	}, nil
}

func (c *creator) getClient(ctx context.Context) (*bedrockruntime.Client, error) {
	c.once.Do(func() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.region))
		if err != nil {
			c.initErr = err
			return
		}
		c.client = bedrockruntime.NewFromConfig(awsCfg)
	})
	return c.client, c.initErr
}
