package adapters

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/chat"
	"github.com/valyala/fastjson"
)

var streamDoneSentinel = []byte("[DONE]")

// openAIFamily serves every OpenAI-compatible endpoint (OpenAI, X.AI, the
// fallback provider). The canonical dialect is already theirs, so requests
// pass through with only the scanned message rewritten in place. Fields the
// gateway does not model (tools, response_format, ...) survive untouched.
type openAIFamily struct{}

func (o *openAIFamily) ToUpstream(req *chat.Request, raw []byte) ([]byte, error) {
	idx := req.ScanTargetIndex()
	if idx < 0 {
		return raw, nil
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing request body: %w", err)
	}

	msgs := v.GetArray("messages")
	if idx >= len(msgs) {
		return raw, nil
	}
	obj := msgs[idx].GetObject()
	if obj == nil {
		return raw, nil
	}

	content, err := json.Marshal(req.Messages[idx].Content)
	if err != nil {
		return nil, fmt.Errorf("encoding sanitized content: %w", err)
	}
	obj.Set("content", fastjson.MustParseBytes(content))

	return v.MarshalTo(nil), nil
}

func (o *openAIFamily) FromUpstream(body []byte, _ string) (*chat.Response, error) {
	var resp chat.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding upstream response: %w", err)
	}
	return &resp, nil
}

func (o *openAIFamily) FromUpstreamError(status int, body []byte) chat.Error {
	return normalizeUpstreamError(status, body)
}

// DeltaFromChunk reads choices[0].delta.content from one SSE payload. The
// [DONE] sentinel ends the stream; role announcements and usage-only chunks
// carry no text and are skipped by the caller.
func (o *openAIFamily) DeltaFromChunk(data []byte) (string, bool) {
	if bytes.Equal(bytes.TrimSpace(data), streamDoneSentinel) {
		return "", true
	}
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return "", false
	}
	return string(v.GetStringBytes("choices", "0", "delta", "content")), false
}
