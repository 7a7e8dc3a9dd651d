package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PromptSentinel/SentinelGate/pkg/adapters"
	"github.com/PromptSentinel/SentinelGate/pkg/config"
	"github.com/PromptSentinel/SentinelGate/pkg/domain/audit"
	"github.com/PromptSentinel/SentinelGate/pkg/domain/chat"
	domain "github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
	"github.com/PromptSentinel/SentinelGate/pkg/guardrail"
	"github.com/PromptSentinel/SentinelGate/pkg/guardrail/stream"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/metrics"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/upstream"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/useragent"
	"github.com/PromptSentinel/SentinelGate/pkg/router"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type chatCompletionsHandler struct {
	logger       *logrus.Logger
	handle       *guardrail.Handle
	router       *router.Router
	forwarder    upstream.Forwarder
	streamClient *http.Client
	recorder     audit.Recorder
	streamCfg    stream.Config
}

// ChatCompletionsHandlerDeps contains all dependencies for ChatCompletionsHandler.
type ChatCompletionsHandlerDeps struct {
	Logger       *logrus.Logger
	Handle       *guardrail.Handle
	Router       *router.Router
	Forwarder    upstream.Forwarder
	StreamClient *http.Client
	Recorder     audit.Recorder
	StreamConfig config.StreamConfig
}

func NewChatCompletionsHandler(deps ChatCompletionsHandlerDeps) Handler {
	return &chatCompletionsHandler{
		logger:       deps.Logger,
		handle:       deps.Handle,
		router:       deps.Router,
		forwarder:    deps.Forwarder,
		streamClient: deps.StreamClient,
		recorder:     deps.Recorder,
		streamCfg: stream.Config{
			ReleaseWatermark: deps.StreamConfig.ReleaseWatermark,
			TailRetention:    deps.StreamConfig.TailRetention,
			WidenAfterDeltas: deps.StreamConfig.WidenAfterDeltas,
		},
	}
}

// Handle @Summary Create a chat completion
// @Description Screens the prompt with the active guardrail profile, forwards it to the routed provider and screens the completion on the way back
// @Tags Completions
// @Accept json
// @Produce json
// @Param request body chat.Request true "Chat completion request"
// @Success 200 {object} chat.Response "Completion"
// @Failure 400 {object} chat.Error "Malformed payload or blocked by security policy"
// @Failure 502 {object} chat.Error "Upstream connection failure"
// @Router /v1/chat/completions [post]
func (h *chatCompletionsHandler) Handle(c *fiber.Ctx) error {
	startTime := time.Now()

	var req chat.Request
	if err := c.BodyParser(&req); err != nil {
		h.logger.WithError(err).Error("failed to parse completion request")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidJsonPayload})
	}

	// One engine for the whole request; a profile switch mid-flight never
	// mixes two profiles.
	engine := h.handle.Engine()

	entry := audit.Entry{
		ClientIP: c.IP(),
		Model:    req.Model,
		Metadata: requestMetadata(c),
	}

	scanIdx := req.ScanTargetIndex()
	if scanIdx >= 0 {
		entry.OriginalPrompt = req.Messages[scanIdx].Content
	}

	verdict := engine.Validate(c.Context(), entry.OriginalPrompt)
	entry.SanitizedPrompt = verdict.SanitizedText
	entry.Metadata["action"] = string(verdict.Action)

	var rules []string
	if verdict.Action != domain.ActionAllowed {
		rules = splitRules(verdict.Reason)
	}

	if !verdict.Valid {
		metrics.BlockedTotal.WithLabelValues(metrics.DirectionInput).Inc()
		h.recordAudit(entry, audit.BlockedVerdict(verdict.Reason), rules, startTime)
		observeRequest(fiber.StatusBadRequest, metrics.OutcomeBlocked, startTime)
		return c.Status(fiber.StatusBadRequest).JSON(chat.PolicyViolationError(verdict.Reason))
	}

	if scanIdx >= 0 {
		req.Messages[scanIdx].Content = verdict.SanitizedText
	}

	target := h.router.Resolve(req.Model)
	adapter := adapters.ForFamily(target.Family)

	// The adapter gets the original raw body alongside the sanitized
	// request so identity forwarding keeps fields the gateway does not
	// model (tools, response_format, ...).
	upstreamBody, err := adapter.ToUpstream(&req, c.Body())
	if err != nil {
		h.logger.WithError(err).WithField("family", string(target.Family)).Error("failed to build upstream request")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Stream {
		return h.streamCompletion(c, engine, adapter, target, upstreamBody, entry, rules, startTime)
	}
	return h.bufferedCompletion(c, engine, adapter, target, upstreamBody, entry, rules, startTime)
}

func (h *chatCompletionsHandler) bufferedCompletion(
	c *fiber.Ctx,
	engine *guardrail.Engine,
	adapter adapters.Adapter,
	target router.Target,
	body []byte,
	entry audit.Entry,
	rules []string,
	start time.Time,
) error {
	upstreamStart := time.Now()
	resp, err := h.forwarder.Forward(c.Context(), target, body)
	if err != nil {
		h.logger.WithError(err).WithField("url", target.URL).Error("upstream request failed")
		h.recordAudit(entry, audit.FailedUpstreamVerdict(fiber.StatusBadGateway), rules, start)
		observeRequest(fiber.StatusBadGateway, metrics.OutcomeUpstreamError, start)
		return c.Status(fiber.StatusBadGateway).JSON(chat.GatewayFailure(err))
	}
	metrics.RequestLatency.WithLabelValues(metrics.LatencyUpstream).
		Observe(float64(time.Since(upstreamStart).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.recordAudit(entry, audit.FailedUpstreamVerdict(resp.StatusCode), rules, start)
		observeRequest(resp.StatusCode, metrics.OutcomeUpstreamError, start)
		return c.Status(resp.StatusCode).JSON(adapter.FromUpstreamError(resp.StatusCode, resp.Body))
	}

	completion, err := adapter.FromUpstream(resp.Body, target.Model)
	if err != nil {
		h.logger.WithError(err).WithField("url", target.URL).Error("failed to decode upstream completion")
		h.recordAudit(entry, audit.FailedUpstreamVerdict(fiber.StatusBadGateway), rules, start)
		observeRequest(fiber.StatusBadGateway, metrics.OutcomeUpstreamError, start)
		return c.Status(fiber.StatusBadGateway).JSON(chat.GatewayFailure(err))
	}

	outcome := metrics.OutcomePassed
	verdictLabel := audit.VerdictPassed

	outVerdict := engine.ValidateOutput(c.Context(), completion.AssistantText())
	switch outVerdict.Action {
	case domain.ActionBlocked:
		metrics.BlockedTotal.WithLabelValues(metrics.DirectionOutput).Inc()
		setAssistantText(completion, domain.BlockMarker(outVerdict.Reason), chat.FinishContentFilter)
		rules = append(rules, splitRules(outVerdict.Reason)...)
		outcome = metrics.OutcomeOutputBlocked
		verdictLabel = audit.OutputBlockedVerdict(outVerdict.Reason)
	case domain.ActionRedacted:
		setAssistantText(completion, outVerdict.SanitizedText, "")
		rules = append(rules, splitRules(outVerdict.Reason)...)
	}

	h.recordAudit(entry, verdictLabel, rules, start)
	observeRequest(fiber.StatusOK, outcome, start)
	return c.Status(fiber.StatusOK).JSON(completion)
}

func (h *chatCompletionsHandler) streamCompletion(
	c *fiber.Ctx,
	engine *guardrail.Engine,
	adapter adapters.Adapter,
	target router.Target,
	body []byte,
	entry audit.Entry,
	rules []string,
	start time.Time,
) error {
	source, err := upstream.OpenStream(c.Context(), h.streamClient, target, body, adapter.DeltaFromChunk)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			h.recordAudit(entry, audit.FailedUpstreamVerdict(statusErr.StatusCode), rules, start)
			observeRequest(statusErr.StatusCode, metrics.OutcomeUpstreamError, start)
			return c.Status(statusErr.StatusCode).JSON(adapter.FromUpstreamError(statusErr.StatusCode, statusErr.Body))
		}
		h.logger.WithError(err).WithField("url", target.StreamURL).Error("failed to open upstream stream")
		h.recordAudit(entry, audit.FailedUpstreamVerdict(fiber.StatusBadGateway), rules, start)
		observeRequest(fiber.StatusBadGateway, metrics.OutcomeUpstreamError, start)
		return c.Status(fiber.StatusBadGateway).JSON(chat.GatewayFailure(err))
	}

	session := stream.New(engine, h.streamCfg, source)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.Context()
	frame := newChunkFramer(target.Model)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() { _ = session.Close() }()

		for {
			fragment, err := session.Next(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) {
					finish := chat.FinishStop
					verdictLabel := audit.VerdictPassed
					outcome := metrics.OutcomePassed
					if session.Blocked() {
						metrics.BlockedTotal.WithLabelValues(metrics.DirectionOutput).Inc()
						finish = chat.FinishContentFilter
						verdictLabel = audit.OutputBlockedVerdict(session.BlockReason())
						outcome = metrics.OutcomeOutputBlocked
						rules = append(rules, splitRules(session.BlockReason())...)
					}
					h.writeFrame(w, frame.finish(finish))
					_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
					_ = w.Flush()
					h.recordAudit(entry, verdictLabel, rules, start)
					observeRequest(fiber.StatusOK, outcome, start)
					return
				}
				// Headers are already out; the stream just ends short.
				h.logger.WithError(err).Error("upstream stream failed mid-response")
				h.recordAudit(entry, audit.FailedUpstreamVerdict(fiber.StatusBadGateway), rules, start)
				observeRequest(fiber.StatusOK, metrics.OutcomeUpstreamError, start)
				return
			}
			h.writeFrame(w, frame.delta(fragment))
			metrics.StreamFragmentsTotal.Inc()
		}
	})

	return nil
}

func (h *chatCompletionsHandler) writeFrame(w *bufio.Writer, chunk chat.StreamChunk) {
	data, err := json.Marshal(chunk)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal stream chunk")
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	_ = w.Flush()
}

func (h *chatCompletionsHandler) recordAudit(entry audit.Entry, verdict string, rules []string, start time.Time) {
	entry.Verdict = verdict
	entry.TriggeredRules = rules
	entry.LatencyMS = time.Since(start).Milliseconds()
	h.recorder.Record(entry)
}

func observeRequest(status int, outcome string, start time.Time) {
	metrics.RequestTotal.WithLabelValues(strconv.Itoa(status), outcome).Inc()
	metrics.RequestLatency.WithLabelValues(metrics.LatencyTotal).
		Observe(float64(time.Since(start).Milliseconds()))
}

// requestMetadata captures client context for the audit trail.
func requestMetadata(c *fiber.Ctx) audit.Metadata {
	md := audit.Metadata{}
	if requestID := c.Get(fiber.HeaderXRequestID); requestID != "" {
		md["request_id"] = requestID
	}
	if info := useragent.Parse(c.Get(fiber.HeaderUserAgent), c.Get("Accept-Language")); info != nil {
		md["user_agent"] = info
	}
	return md
}

// splitRules turns a merged verdict reason back into its per-rule parts.
func splitRules(reason string) []string {
	if reason == "" {
		return nil
	}
	return strings.Split(reason, ", ")
}

// setAssistantText rewrites the first choice in place. An empty
// finishReason leaves the upstream's reason untouched.
func setAssistantText(resp *chat.Response, text, finishReason string) {
	if len(resp.Choices) == 0 {
		resp.Choices = []chat.Choice{{Message: chat.Message{Role: chat.RoleAssistant}}}
	}
	resp.Choices[0].Message.Content = text
	if finishReason != "" {
		resp.Choices[0].FinishReason = finishReason
	}
}

// chunkFramer builds the canonical SSE chunk sequence for one session: a
// stable id, a role announcement on the first delta, content deltas, then
// a single finish chunk.
type chunkFramer struct {
	id      string
	model   string
	created int64
	first   bool
}

func newChunkFramer(model string) *chunkFramer {
	return &chunkFramer{
		id:      "chatcmpl-" + uuid.NewString(),
		model:   model,
		created: time.Now().Unix(),
		first:   true,
	}
}

func (f *chunkFramer) delta(text string) chat.StreamChunk {
	d := chat.StreamDelta{Content: text}
	if f.first {
		d.Role = chat.RoleAssistant
		f.first = false
	}
	return f.chunk(d, nil)
}

func (f *chunkFramer) finish(reason string) chat.StreamChunk {
	return f.chunk(chat.StreamDelta{}, &reason)
}

func (f *chunkFramer) chunk(delta chat.StreamDelta, finish *string) chat.StreamChunk {
	return chat.StreamChunk{
		ID:      f.id,
		Object:  chat.ObjectCompletionChunk,
		Created: f.created,
		Model:   f.model,
		Choices: []chat.StreamChoice{{Index: 0, Delta: delta, FinishReason: finish}},
	}
}
