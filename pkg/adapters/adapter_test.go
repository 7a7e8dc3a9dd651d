package adapters

import (
	"strings"
	"testing"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/chat"
	"github.com/PromptSentinel/SentinelGate/pkg/router"
	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestForFamily_ReturnsSharedAdapters(t *testing.T) {
	assert.IsType(t, &anthropicFamily{}, ForFamily(router.FamilyAnthropic))
	assert.IsType(t, &geminiFamily{}, ForFamily(router.FamilyGemini))
	assert.IsType(t, &openAIFamily{}, ForFamily(router.FamilyOpenAI))

	assert.Same(t, ForFamily(router.FamilyOpenAI), ForFamily(router.FamilyOpenAI), "adapters are stateless singletons")
}

func TestNormalizeUpstreamError_OpenAIShape(t *testing.T) {
	body := []byte(`{"error":{"message":"Rate limit reached","type":"rate_limit_error","code":"rate_limit_exceeded"}}`)

	out := normalizeUpstreamError(429, body)

	assert.Equal(t, "Upstream Error: Rate limit reached", out.Detail.Message)
	assert.Equal(t, chat.ErrTypeAPIError, out.Detail.Type)
	assert.Equal(t, chat.CodeUpstreamError, out.Detail.Code)
}

func TestNormalizeUpstreamError_AnthropicShape(t *testing.T) {
	body := []byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)

	out := normalizeUpstreamError(529, body)

	assert.Equal(t, "Upstream Error: Overloaded", out.Detail.Message)
}

func TestNormalizeUpstreamError_GeminiShape(t *testing.T) {
	body := []byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)

	out := normalizeUpstreamError(400, body)

	assert.Equal(t, "Upstream Error: API key not valid", out.Detail.Message)
}

func TestNormalizeUpstreamError_PlainTextBody(t *testing.T) {
	out := normalizeUpstreamError(503, []byte("upstream unavailable"))

	assert.Equal(t, "Upstream Error (503): upstream unavailable", out.Detail.Message)
	assert.Equal(t, chat.ErrTypeAPIError, out.Detail.Type)
	assert.Equal(t, chat.CodeUpstreamError, out.Detail.Code)
}

func TestNormalizeUpstreamError_TruncatesLongBodies(t *testing.T) {
	out := normalizeUpstreamError(500, []byte(strings.Repeat("x", 1000)))

	assert.Equal(t, "Upstream Error (500): "+strings.Repeat("x", maxErrorBodyBytes), out.Detail.Message)
}

func TestNormalizeUpstreamError_EmptyMessageFallsBackToRaw(t *testing.T) {
	out := normalizeUpstreamError(502, []byte(`{"error":{"message":""}}`))

	assert.Equal(t, `Upstream Error (502): {"error":{"message":""}}`, out.Detail.Message)
}
