package adapters

import (
	"encoding/json"
	"testing"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicToUpstream_LiftsSystemMessages(t *testing.T) {
	req := &chat.Request{
		Model: "claude-sonnet-4",
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: "you are a pirate"},
			{Role: chat.RoleSystem, Content: "answer briefly"},
			{Role: chat.RoleUser, Content: "ahoy"},
			{Role: chat.RoleAssistant, Content: "ahoy matey"},
			{Role: chat.RoleUser, Content: "where be the treasure"},
		},
	}

	body, err := (&anthropicFamily{}).ToUpstream(req, nil)
	require.NoError(t, err)

	var out anthropicRequest
	require.NoError(t, json.Unmarshal(body, &out))

	assert.Equal(t, "claude-sonnet-4", out.Model)
	assert.Equal(t, "you are a pirate\nanswer briefly", out.System)
	require.Len(t, out.Messages, 3, "system turns never reach the messages list")
	assert.Equal(t, anthropicMessage{Role: "user", Content: "ahoy"}, out.Messages[0])
	assert.Equal(t, anthropicMessage{Role: "assistant", Content: "ahoy matey"}, out.Messages[1])
	assert.Equal(t, anthropicMessage{Role: "user", Content: "where be the treasure"}, out.Messages[2])
}

func TestAnthropicToUpstream_DefaultsMaxTokens(t *testing.T) {
	req := &chat.Request{
		Model:    "claude-sonnet-4",
		Messages: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
	}

	body, err := (&anthropicFamily{}).ToUpstream(req, nil)
	require.NoError(t, err)

	var out anthropicRequest
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, defaultAnthropicMaxTokens, out.MaxTokens)
}

func TestAnthropicToUpstream_MapsGenerationParams(t *testing.T) {
	req := &chat.Request{
		Model:       "claude-sonnet-4",
		Messages:    []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
		Temperature: floatPtr(0.7),
		TopP:        floatPtr(0.9),
		MaxTokens:   intPtr(256),
		Stop:        chat.StopSequences{"END", "STOP"},
		Stream:      true,
	}

	body, err := (&anthropicFamily{}).ToUpstream(req, nil)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))

	assert.Equal(t, 0.7, out["temperature"])
	assert.Equal(t, 0.9, out["top_p"])
	assert.Equal(t, float64(256), out["max_tokens"])
	assert.Equal(t, []any{"END", "STOP"}, out["stop_sequences"])
	assert.Equal(t, true, out["stream"])
	assert.NotContains(t, out, "stop", "canonical stop never leaks through")
}

func TestAnthropicFromUpstream_ConcatenatesTextBlocks(t *testing.T) {
	body := []byte(`{"id":"msg_01","type":"message","role":"assistant","model":"claude-sonnet-4-20250514","content":[{"type":"text","text":"Hello"},{"type":"text","text":" world"}],"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":8}}`)

	resp, err := (&anthropicFamily{}).FromUpstream(body, "claude-sonnet-4")
	require.NoError(t, err)

	assert.Equal(t, "msg_01", resp.ID)
	assert.Equal(t, chat.ObjectCompletion, resp.Object)
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Model, "the response's own model wins")
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, chat.RoleAssistant, resp.Choices[0].Message.Role)
	assert.Equal(t, "Hello world", resp.Choices[0].Message.Content)
	assert.Equal(t, chat.FinishStop, resp.Choices[0].FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 8, resp.Usage.CompletionTokens)
	assert.Equal(t, 20, resp.Usage.TotalTokens)
}

func TestAnthropicFromUpstream_StopReasonMapping(t *testing.T) {
	cases := map[string]string{
		"end_turn":      chat.FinishStop,
		"max_tokens":    chat.FinishLength,
		"refusal":       chat.FinishContentFilter,
		"tool_use":      chat.FinishOther,
		"stop_sequence": chat.FinishOther,
	}
	for stopReason, want := range cases {
		body := []byte(`{"id":"msg_02","type":"message","role":"assistant","content":[{"type":"text","text":"x"}],"stop_reason":"` + stopReason + `","usage":{"input_tokens":1,"output_tokens":1}}`)

		resp, err := (&anthropicFamily{}).FromUpstream(body, "claude-sonnet-4")
		require.NoError(t, err)
		assert.Equal(t, want, resp.Choices[0].FinishReason, "stop_reason %q", stopReason)
	}
}

func TestAnthropicRoundTrip_PreservesRoleAndContent(t *testing.T) {
	a := &anthropicFamily{}
	req := &chat.Request{
		Model: "claude-sonnet-4",
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: "summarize the meeting notes"},
		},
	}

	body, err := a.ToUpstream(req, nil)
	require.NoError(t, err)

	var wire anthropicRequest
	require.NoError(t, json.Unmarshal(body, &wire))
	require.NotEmpty(t, wire.Messages)

	// Echo the prompt back as the completion text.
	upstream := []byte(`{"id":"msg_03","type":"message","role":"assistant","content":[{"type":"text","text":"` + wire.Messages[0].Content + `"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`)

	resp, err := a.FromUpstream(upstream, req.Model)
	require.NoError(t, err)
	assert.Equal(t, chat.RoleAssistant, resp.Choices[0].Message.Role)
	assert.Equal(t, "summarize the meeting notes", resp.AssistantText())
}

func TestAnthropicDeltaFromChunk(t *testing.T) {
	a := &anthropicFamily{}

	text, done := a.DeltaFromChunk([]byte(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`))
	assert.Equal(t, "Hel", text)
	assert.False(t, done)

	text, done = a.DeltaFromChunk([]byte(`{"type":"message_start","message":{"id":"msg_01","type":"message","role":"assistant","content":[],"usage":{"input_tokens":10,"output_tokens":0}}}`))
	assert.Empty(t, text)
	assert.False(t, done)

	text, done = a.DeltaFromChunk([]byte(`{"type":"ping"}`))
	assert.Empty(t, text)
	assert.False(t, done)

	text, done = a.DeltaFromChunk([]byte(`{"type":"message_stop"}`))
	assert.Empty(t, text)
	assert.True(t, done)
}
