package router

import (
	"fmt"
	"strings"

	"github.com/PromptSentinel/SentinelGate/pkg/config"
)

// Family is the upstream wire dialect. X.AI and self-hosted targets speak
// the OpenAI dialect, so three families cover every route.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyGemini    Family = "gemini"
)

const anthropicAPIVersion = "2023-06-01"

// Target is a fully resolved upstream destination. StreamURL differs from
// URL only for providers with a separate streaming endpoint.
type Target struct {
	URL       string
	StreamURL string
	Headers   map[string]string
	Family    Family
	Model     string
}

type endpoint struct {
	base string
	key  string
}

// Router maps model names to provider endpoints by prefix. Resolution is
// pure and never fails: unrecognized names go to the OpenAI-compatible
// fallback, since self-hosted models carry arbitrary names.
type Router struct {
	openai    endpoint
	anthropic endpoint
	gemini    endpoint
	xai       endpoint
	fallback  endpoint
}

func New(providers config.ProvidersConfig) *Router {
	return &Router{
		openai:    newEndpoint(providers.OpenAI),
		anthropic: newEndpoint(providers.Anthropic),
		gemini:    newEndpoint(providers.Google),
		xai:       newEndpoint(providers.XAI),
		fallback:  newEndpoint(providers.Fallback),
	}
}

func newEndpoint(p config.ProviderConfig) endpoint {
	return endpoint{base: strings.TrimRight(p.BaseURL, "/"), key: p.APIKey}
}

func (r *Router) Resolve(model string) Target {
	switch {
	case strings.HasPrefix(model, "claude"):
		url := r.anthropic.base + "/v1/messages"
		return Target{
			URL:       url,
			StreamURL: url,
			Headers:   anthropicHeaders(r.anthropic.key),
			Family:    FamilyAnthropic,
			Model:     model,
		}
	case strings.HasPrefix(model, "gemini"):
		return Target{
			URL:       fmt.Sprintf("%s/v1beta/models/%s:generateContent", r.gemini.base, model),
			StreamURL: fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", r.gemini.base, model),
			Headers:   geminiHeaders(r.gemini.key),
			Family:    FamilyGemini,
			Model:     model,
		}
	case strings.HasPrefix(model, "gpt") || isOSeries(model):
		url := r.openai.base + "/v1/chat/completions"
		return Target{
			URL:       url,
			StreamURL: url,
			Headers:   bearerHeaders(r.openai.key),
			Family:    FamilyOpenAI,
			Model:     model,
		}
	case strings.HasPrefix(model, "grok"):
		url := r.xai.base + "/v1/chat/completions"
		return Target{
			URL:       url,
			StreamURL: url,
			Headers:   bearerHeaders(r.xai.key),
			Family:    FamilyOpenAI,
			Model:     model,
		}
	default:
		// The fallback base is a complete chat-completions URL, not a host.
		return Target{
			URL:       r.fallback.base,
			StreamURL: r.fallback.base,
			Headers:   bearerHeaders(r.fallback.key),
			Family:    FamilyOpenAI,
			Model:     model,
		}
	}
}

// isOSeries matches OpenAI reasoning models: "o" followed by a digit
// (o1, o3-mini, o4). A bare "o" prefix would swallow unrelated names.
func isOSeries(model string) bool {
	return len(model) >= 2 && model[0] == 'o' && model[1] >= '0' && model[1] <= '9'
}

func anthropicHeaders(key string) map[string]string {
	h := map[string]string{"anthropic-version": anthropicAPIVersion}
	if key != "" {
		h["x-api-key"] = key
	}
	return h
}

func geminiHeaders(key string) map[string]string {
	h := map[string]string{}
	if key != "" {
		h["x-goog-api-key"] = key
	}
	return h
}

func bearerHeaders(key string) map[string]string {
	h := map[string]string{}
	if key != "" {
		h["Authorization"] = "Bearer " + key
	}
	return h
}
