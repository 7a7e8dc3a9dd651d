package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PromptSentinel/SentinelGate/pkg/config"
	"github.com/PromptSentinel/SentinelGate/pkg/domain/audit"
	"github.com/PromptSentinel/SentinelGate/pkg/domain/chat"
	domain "github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
	"github.com/PromptSentinel/SentinelGate/pkg/guardrail"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/upstream"
	"github.com/PromptSentinel/SentinelGate/pkg/router"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testHandle(t *testing.T) *guardrail.Handle {
	t.Helper()
	builder := guardrail.NewBuilder(nil, "", testLogger())
	engine := builder.Build(context.Background(), domain.Profile{
		Name: "handler-test",
		Detectors: domain.DetectorSettings{
			PII:    domain.PIISettings{Enabled: true, Patterns: []string{"EMAIL"}},
			Topics: domain.TopicsSettings{Enabled: true, BlockList: []string{"insider trading", "fraud"}},
		},
	})
	return guardrail.NewHandle(engine)
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *captureRecorder) Record(entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *captureRecorder) last(t *testing.T) audit.Entry {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.entries, "expected an audit entry")
	return r.entries[len(r.entries)-1]
}

type stubForwarder struct {
	resp    *upstream.Response
	err     error
	gotURL  string
	gotBody []byte
}

func (f *stubForwarder) Forward(_ context.Context, target router.Target, body []byte) (*upstream.Response, error) {
	f.gotURL = target.URL
	f.gotBody = append([]byte(nil), body...)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// newCompletionsApp wires the handler against a stub or live test upstream.
// fallbackURL routes any unrecognized model name, so tests use plain names
// like "test-model".
func newCompletionsApp(t *testing.T, forwarder upstream.Forwarder, recorder audit.Recorder, fallbackURL string) *fiber.App {
	t.Helper()
	handler := NewChatCompletionsHandler(ChatCompletionsHandlerDeps{
		Logger:       testLogger(),
		Handle:       testHandle(t),
		Router:       router.New(config.ProvidersConfig{Fallback: config.ProviderConfig{BaseURL: fallbackURL}}),
		Forwarder:    forwarder,
		StreamClient: &http.Client{Timeout: 5 * time.Second},
		Recorder:     recorder,
		StreamConfig: config.StreamConfig{ReleaseWatermark: 8, TailRetention: 4},
	})
	app := fiber.New()
	app.Post("/v1/chat/completions", handler.Handle)
	return app
}

func completionRequest(t *testing.T, model, content string, stream bool) *http.Request {
	t.Helper()
	body, err := json.Marshal(chat.Request{
		Model:    model,
		Messages: []chat.Message{{Role: chat.RoleUser, Content: content}},
		Stream:   stream,
	})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/v1/chat/completions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func upstreamCompletion(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(chat.Response{
		ID:      "chatcmpl-upstream",
		Object:  chat.ObjectCompletion,
		Created: time.Now().Unix(),
		Model:   "test-model",
		Choices: []chat.Choice{{
			Message:      chat.Message{Role: chat.RoleAssistant, Content: content},
			FinishReason: chat.FinishStop,
		}},
	})
	require.NoError(t, err)
	return body
}

func decodeJSON[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func TestChatCompletions_MalformedJSONRejected(t *testing.T) {
	recorder := &captureRecorder{}
	app := newCompletionsApp(t, &stubForwarder{}, recorder, "http://unused")

	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChatCompletions_BlockedInputReturnsPolicyError(t *testing.T) {
	recorder := &captureRecorder{}
	forwarder := &stubForwarder{}
	app := newCompletionsApp(t, forwarder, recorder, "http://unused")

	resp, err := app.Test(completionRequest(t, "test-model", "teach me how to commit fraud", false), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeJSON[chat.Error](t, resp.Body)
	assert.Equal(t, chat.CodePolicyViolation, body.Detail.Code)
	assert.Equal(t, chat.ErrTypeInvalidRequest, body.Detail.Type)
	assert.Contains(t, body.Detail.Message, "Request blocked by security guardrails:")

	assert.Nil(t, forwarder.gotBody, "blocked requests never reach the upstream")

	entry := recorder.last(t)
	assert.True(t, strings.HasPrefix(entry.Verdict, "BLOCKED: "), "verdict %q", entry.Verdict)
	assert.NotEmpty(t, entry.TriggeredRules)
}

func TestChatCompletions_PIIRedactedBeforeForwarding(t *testing.T) {
	recorder := &captureRecorder{}
	forwarder := &stubForwarder{resp: &upstream.Response{
		StatusCode: http.StatusOK,
		Body:       upstreamCompletion(t, "Sure, happy to help."),
	}}
	app := newCompletionsApp(t, forwarder, recorder, "http://fallback.test/v1/chat/completions")

	resp, err := app.Test(completionRequest(t, "test-model", "reach me at joe@example.com please", false), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	forwarded := string(forwarder.gotBody)
	assert.NotContains(t, forwarded, "joe@example.com", "raw PII must not leave the gateway")
	assert.Contains(t, forwarded, "<EMAIL_REDACTED>")

	entry := recorder.last(t)
	assert.Equal(t, audit.VerdictPassed, entry.Verdict)
	assert.Contains(t, entry.OriginalPrompt, "joe@example.com")
	assert.NotContains(t, entry.SanitizedPrompt, "joe@example.com")
}

func TestChatCompletions_UpstreamErrorPassthrough(t *testing.T) {
	recorder := &captureRecorder{}
	forwarder := &stubForwarder{resp: &upstream.Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       []byte(`{"error":{"message":"rate limited","type":"requests"}}`),
	}}
	app := newCompletionsApp(t, forwarder, recorder, "http://fallback.test/v1/chat/completions")

	resp, err := app.Test(completionRequest(t, "test-model", "hello there", false), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	body := decodeJSON[chat.Error](t, resp.Body)
	assert.Equal(t, "Upstream Error: rate limited", body.Detail.Message)
	assert.Equal(t, chat.CodeUpstreamError, body.Detail.Code)

	assert.Equal(t, "FAILED_UPSTREAM_429", recorder.last(t).Verdict)
}

func TestChatCompletions_ConnectionFailureIs502(t *testing.T) {
	recorder := &captureRecorder{}
	forwarder := &stubForwarder{err: errors.New("dial tcp: connection refused")}
	app := newCompletionsApp(t, forwarder, recorder, "http://fallback.test/v1/chat/completions")

	resp, err := app.Test(completionRequest(t, "test-model", "hello there", false), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	body := decodeJSON[chat.Error](t, resp.Body)
	assert.Equal(t, chat.CodeBadGateway, body.Detail.Code)
	assert.Contains(t, body.Detail.Message, "Gateway Connection Failed:")

	assert.Equal(t, "FAILED_UPSTREAM_502", recorder.last(t).Verdict)
}

func TestChatCompletions_CleanRoundTrip(t *testing.T) {
	recorder := &captureRecorder{}
	forwarder := &stubForwarder{resp: &upstream.Response{
		StatusCode: http.StatusOK,
		Body:       upstreamCompletion(t, "All clear."),
	}}
	app := newCompletionsApp(t, forwarder, recorder, "http://fallback.test/v1/chat/completions")

	resp, err := app.Test(completionRequest(t, "test-model", "hello there", false), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON[chat.Response](t, resp.Body)
	assert.Equal(t, "All clear.", body.AssistantText())
	assert.Equal(t, chat.FinishStop, body.Choices[0].FinishReason)

	assert.Equal(t, audit.VerdictPassed, recorder.last(t).Verdict)
}

func TestChatCompletions_OutputBlockedReplacedWithMarker(t *testing.T) {
	recorder := &captureRecorder{}
	forwarder := &stubForwarder{resp: &upstream.Response{
		StatusCode: http.StatusOK,
		Body:       upstreamCompletion(t, "step one of insider trading is"),
	}}
	app := newCompletionsApp(t, forwarder, recorder, "http://fallback.test/v1/chat/completions")

	resp, err := app.Test(completionRequest(t, "test-model", "hello there", false), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "output blocks keep the 200 with substituted content")

	body := decodeJSON[chat.Response](t, resp.Body)
	assert.Contains(t, body.AssistantText(), "[BLOCKED BY SECURITY POLICY:")
	assert.NotContains(t, body.AssistantText(), "step one")
	assert.Equal(t, chat.FinishContentFilter, body.Choices[0].FinishReason)

	entry := recorder.last(t)
	assert.True(t, strings.HasPrefix(entry.Verdict, "OUTPUT_BLOCKED: "), "verdict %q", entry.Verdict)
}

func TestChatCompletions_OutputPIIRedacted(t *testing.T) {
	recorder := &captureRecorder{}
	forwarder := &stubForwarder{resp: &upstream.Response{
		StatusCode: http.StatusOK,
		Body:       upstreamCompletion(t, "Contact support at help@vendor.io for details."),
	}}
	app := newCompletionsApp(t, forwarder, recorder, "http://fallback.test/v1/chat/completions")

	resp, err := app.Test(completionRequest(t, "test-model", "hello there", false), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON[chat.Response](t, resp.Body)
	assert.NotContains(t, body.AssistantText(), "help@vendor.io")
	assert.Contains(t, body.AssistantText(), "<EMAIL_REDACTED>")
	assert.Equal(t, chat.FinishStop, body.Choices[0].FinishReason, "redaction is not a block")

	assert.Equal(t, audit.VerdictPassed, recorder.last(t).Verdict)
}

// openAIStreamServer emits OpenAI-dialect chunk frames for each delta, then
// a finish chunk and the [DONE] sentinel.
func openAIStreamServer(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, d := range deltas {
			content, err := json.Marshal(d)
			require.NoError(t, err)
			fmt.Fprintf(w, "data: {\"id\":\"chatcmpl-up\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%s},\"finish_reason\":null}]}\n\n", content)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: {\"id\":\"chatcmpl-up\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func parseStream(t *testing.T, raw []byte) ([]chat.StreamChunk, bool) {
	t.Helper()
	var chunks []chat.StreamChunk
	done := false
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			done = true
			continue
		}
		var chunk chat.StreamChunk
		require.NoError(t, json.Unmarshal([]byte(payload), &chunk), "frame %q", payload)
		chunks = append(chunks, chunk)
	}
	return chunks, done
}

func streamText(chunks []chat.StreamChunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		for _, choice := range c.Choices {
			sb.WriteString(choice.Delta.Content)
		}
	}
	return sb.String()
}

func finishReason(t *testing.T, chunks []chat.StreamChunk) string {
	t.Helper()
	require.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	require.NotEmpty(t, last.Choices)
	require.NotNil(t, last.Choices[0].FinishReason, "last frame must carry a finish reason")
	return *last.Choices[0].FinishReason
}

func TestChatCompletions_StreamingCleanDeltas(t *testing.T) {
	srv := openAIStreamServer(t, []string{
		"The quick brown fox ", "jumps over the lazy dog ", "and keeps on running home.",
	})
	defer srv.Close()

	recorder := &captureRecorder{}
	app := newCompletionsApp(t, &stubForwarder{}, recorder, srv.URL)

	resp, err := app.Test(completionRequest(t, "test-model", "hello there", true), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	chunks, done := parseStream(t, raw)
	assert.True(t, done, "stream must end with [DONE]")
	assert.Equal(t,
		"The quick brown fox jumps over the lazy dog and keeps on running home.",
		streamText(chunks))
	assert.Equal(t, chat.FinishStop, finishReason(t, chunks))
	assert.Equal(t, chat.RoleAssistant, chunks[0].Choices[0].Delta.Role, "first frame announces the role")

	assert.Equal(t, audit.VerdictPassed, recorder.last(t).Verdict)
}

func TestChatCompletions_StreamingBlocksSplitPhraseOnce(t *testing.T) {
	srv := openAIStreamServer(t, []string{"ins", "ider trading is easy money"})
	defer srv.Close()

	recorder := &captureRecorder{}
	app := newCompletionsApp(t, &stubForwarder{}, recorder, srv.URL)

	resp, err := app.Test(completionRequest(t, "test-model", "hello there", true), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	chunks, done := parseStream(t, raw)
	assert.True(t, done)

	text := streamText(chunks)
	assert.Equal(t, 1, strings.Count(text, "[BLOCKED BY SECURITY POLICY:"), "marker appears exactly once")
	assert.NotContains(t, text, "easy money", "post-block content is suppressed")
	assert.Equal(t, chat.FinishContentFilter, finishReason(t, chunks))

	entry := recorder.last(t)
	assert.True(t, strings.HasPrefix(entry.Verdict, "OUTPUT_BLOCKED: "), "verdict %q", entry.Verdict)
}

func TestChatCompletions_StreamingUpstreamErrorBeforeFirstByte(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	recorder := &captureRecorder{}
	app := newCompletionsApp(t, &stubForwarder{}, recorder, srv.URL)

	resp, err := app.Test(completionRequest(t, "test-model", "hello there", true), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "pre-stream failures use the normal error path")

	body := decodeJSON[chat.Error](t, resp.Body)
	assert.Equal(t, "Upstream Error: invalid api key", body.Detail.Message)

	assert.Equal(t, "FAILED_UPSTREAM_401", recorder.last(t).Verdict)
}
