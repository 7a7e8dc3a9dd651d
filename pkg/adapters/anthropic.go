package adapters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/chat"
	"github.com/anthropics/anthropic-sdk-go"
)

// Anthropic requires max_tokens on every request; applied when the caller
// omits it.
const defaultAnthropicMaxTokens = 1024

type anthropicRequest struct {
	Model         string             `json:"model"`
	System        string             `json:"system,omitempty"`
	Messages      []anthropicMessage `json:"messages"`
	MaxTokens     int                `json:"max_tokens"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicFamily translates canonical requests to the Messages API and
// decodes responses with the official SDK types. Fields the Messages API
// has no equivalent for (n, penalties, logit_bias) are dropped.
type anthropicFamily struct{}

func (a *anthropicFamily) ToUpstream(req *chat.Request, _ []byte) ([]byte, error) {
	out := anthropicRequest{
		Model:         req.Model,
		MaxTokens:     defaultAnthropicMaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        req.Stream,
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		out.MaxTokens = *req.MaxTokens
	}

	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case chat.RoleSystem:
			system = append(system, m.Content)
		case chat.RoleUser, chat.RoleAssistant:
			out.Messages = append(out.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
		}
	}
	out.System = strings.Join(system, "\n")

	return json.Marshal(out)
}

func (a *anthropicFamily) FromUpstream(body []byte, model string) (*chat.Response, error) {
	var msg anthropic.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("decoding anthropic response: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if msg.Model != "" {
		model = string(msg.Model)
	}

	return &chat.Response{
		ID:      msg.ID,
		Object:  chat.ObjectCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []chat.Choice{{
			Message:      chat.Message{Role: chat.RoleAssistant, Content: text.String()},
			FinishReason: anthropicFinishReason(string(msg.StopReason)),
		}},
		Usage: &chat.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

func (a *anthropicFamily) FromUpstreamError(status int, body []byte) chat.Error {
	return normalizeUpstreamError(status, body)
}

func (a *anthropicFamily) DeltaFromChunk(data []byte) (string, bool) {
	var event anthropic.MessageStreamEventUnion
	if err := json.Unmarshal(data, &event); err != nil {
		return "", false
	}
	if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" {
		return event.Delta.Text, false
	}
	return "", event.Type == "message_stop"
}

func anthropicFinishReason(stopReason string) string {
	switch stopReason {
	case "end_turn":
		return chat.FinishStop
	case "max_tokens":
		return chat.FinishLength
	case "refusal":
		return chat.FinishContentFilter
	default:
		return chat.FinishOther
	}
}
