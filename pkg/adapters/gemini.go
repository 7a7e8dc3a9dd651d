package adapters

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/chat"
	"google.golang.org/genai"
)

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

// geminiFamily translates canonical requests to the generateContent API and
// decodes responses with the genai SDK types. The model name travels in the
// URL, never in the body.
type geminiFamily struct{}

func (g *geminiFamily) ToUpstream(req *chat.Request, _ []byte) ([]byte, error) {
	var out geminiRequest
	var system []geminiPart
	for _, m := range req.Messages {
		switch m.Role {
		case chat.RoleSystem:
			system = append(system, geminiPart{Text: m.Content})
		case chat.RoleAssistant:
			out.Contents = append(out.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: m.Content}},
			})
		default:
			out.Contents = append(out.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}
	if len(system) > 0 {
		out.SystemInstruction = &geminiContent{Parts: system}
	}

	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil || len(req.Stop) > 0 {
		out.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.Stop,
		}
	}

	return json.Marshal(out)
}

func (g *geminiFamily) FromUpstream(body []byte, model string) (*chat.Response, error) {
	var resp genai.GenerateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}

	out := &chat.Response{
		ID:      fmt.Sprintf("gemini-%d", time.Now().UnixNano()),
		Object:  chat.ObjectCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []chat.Choice{{
			Message:      chat.Message{Role: chat.RoleAssistant, Content: resp.Text()},
			FinishReason: geminiFinishReason(&resp),
		}},
	}
	if resp.UsageMetadata != nil {
		out.Usage = &chat.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func (g *geminiFamily) FromUpstreamError(status int, body []byte) chat.Error {
	return normalizeUpstreamError(status, body)
}

// DeltaFromChunk decodes one alt=sse payload, which carries the same shape
// as a full response. A finish reason marks the final chunk; chunks blocked
// by prompt feedback carry no candidates and yield nothing.
func (g *geminiFamily) DeltaFromChunk(data []byte) (string, bool) {
	var chunk genai.GenerateContentResponse
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", false
	}
	done := len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason != ""
	return chunk.Text(), done
}

func geminiFinishReason(resp *genai.GenerateContentResponse) string {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return chat.FinishContentFilter
	}
	if len(resp.Candidates) == 0 {
		return chat.FinishOther
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonStop:
		return chat.FinishStop
	case genai.FinishReasonMaxTokens:
		return chat.FinishLength
	case genai.FinishReasonSafety:
		return chat.FinishContentFilter
	default:
		return chat.FinishOther
	}
}
