package detector

import (
	"context"
	"fmt"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/embedding"
	"github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
)

// Semantic blocks text whose embedding sits too close to a forbidden intent.
// Intent vectors are computed once at construction; only the incoming text
// is embedded per call.
type Semantic struct {
	creator   embedding.Creator
	model     string
	intents   [][]float64
	threshold float64
}

// NewSemantic embeds every forbidden intent up front. Any embedding failure
// here is returned to the caller so the detector can be disabled instead of
// shipping a half-built intent set.
func NewSemantic(ctx context.Context, creator embedding.Creator, model string, intents []string, threshold float64) (*Semantic, error) {
	if creator == nil {
		return nil, fmt.Errorf("semantic detector requires an embedding creator")
	}
	if len(intents) == 0 {
		return nil, fmt.Errorf("semantic detector requires at least one forbidden intent")
	}
	vectors := make([][]float64, 0, len(intents))
	for _, intent := range intents {
		emb, err := creator.Generate(ctx, intent, model)
		if err != nil {
			return nil, fmt.Errorf("embedding forbidden intent %q: %w", intent, err)
		}
		vectors = append(vectors, emb.Value)
	}
	return &Semantic{
		creator:   creator,
		model:     model,
		intents:   vectors,
		threshold: threshold,
	}, nil
}

func (d *Semantic) Kind() guardrail.Kind { return guardrail.KindSemantic }
func (d *Semantic) Mode() guardrail.Mode { return guardrail.ModeBlock }

func (d *Semantic) Inspect(ctx context.Context, text string) (string, []guardrail.Finding, error) {
	emb, err := d.creator.Generate(ctx, text, d.model)
	if err != nil {
		return text, nil, err
	}
	var max float64
	for _, intent := range d.intents {
		if score := embedding.CosineSimilarity(emb.Value, intent); score > max {
			max = score
		}
	}
	if max <= d.threshold {
		return text, nil, nil
	}
	return text, []guardrail.Finding{{
		Detector: guardrail.KindSemantic,
		Rule:     fmt.Sprintf("Semantic:Intent violation (%.2f)", max),
		Mode:     guardrail.ModeBlock,
		Score:    max,
	}}, nil
}
