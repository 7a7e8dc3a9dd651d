package adapters

import (
	"fmt"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/chat"
	"github.com/PromptSentinel/SentinelGate/pkg/router"
	"github.com/valyala/fastjson"
)

// maxErrorBodyBytes bounds how much of an unparseable upstream error body
// is echoed back to the client.
const maxErrorBodyBytes = 256

// Adapter translates between the canonical chat-completions dialect and one
// provider family's wire format. Implementations are stateless and shared
// across requests.
type Adapter interface {
	// ToUpstream builds the provider request body. raw is the client's
	// original JSON; identity adapters graft req's sanitized content into
	// it so unmodeled fields survive, translating adapters rebuild from
	// req alone.
	ToUpstream(req *chat.Request, raw []byte) ([]byte, error)

	// FromUpstream decodes a 2xx provider response into the canonical shape.
	FromUpstream(body []byte, model string) (*chat.Response, error)

	// FromUpstreamError normalizes a non-2xx provider body into the
	// canonical error envelope. It never fails; unparseable bodies are
	// echoed truncated.
	FromUpstreamError(status int, body []byte) chat.Error

	// DeltaFromChunk extracts the text delta from one SSE data payload.
	// done reports the provider's end-of-stream event; text may be empty
	// for bookkeeping events (role announcements, ping, usage).
	DeltaFromChunk(data []byte) (text string, done bool)
}

var (
	openAIAdapter    = &openAIFamily{}
	anthropicAdapter = &anthropicFamily{}
	geminiAdapter    = &geminiFamily{}
)

// ForFamily returns the shared adapter for a routed provider family.
func ForFamily(family router.Family) Adapter {
	switch family {
	case router.FamilyAnthropic:
		return anthropicAdapter
	case router.FamilyGemini:
		return geminiAdapter
	default:
		return openAIAdapter
	}
}

// normalizeUpstreamError maps any provider error body onto the canonical
// envelope. All three families nest a human message under error.message
// (OpenAI {error:{message,type,code}}, Anthropic {error:{type,message}},
// Gemini {error:{message,status}}), so one extraction covers them.
func normalizeUpstreamError(status int, body []byte) chat.Error {
	var p fastjson.Parser
	if v, err := p.ParseBytes(body); err == nil {
		if msg := string(v.GetStringBytes("error", "message")); msg != "" {
			return upstreamError(fmt.Sprintf("Upstream Error: %s", msg))
		}
	}
	raw := body
	if len(raw) > maxErrorBodyBytes {
		raw = raw[:maxErrorBodyBytes]
	}
	return upstreamError(fmt.Sprintf("Upstream Error (%d): %s", status, raw))
}

func upstreamError(message string) chat.Error {
	return chat.Error{Detail: chat.ErrorDetail{
		Message: message,
		Type:    chat.ErrTypeAPIError,
		Code:    chat.CodeUpstreamError,
	}}
}
