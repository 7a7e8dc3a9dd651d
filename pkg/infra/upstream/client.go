package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/PromptSentinel/SentinelGate/pkg/config"
	"github.com/PromptSentinel/SentinelGate/pkg/router"
)

// Response is a completed upstream exchange. Non-2xx statuses are data, not
// errors: the handler translates them for the caller instead of masking them.
type Response struct {
	StatusCode int
	Body       []byte
}

// Forwarder sends a provider-dialect request body to a resolved target and
// returns the decoded response. Errors mean the exchange itself failed
// (connect, timeout, open breaker), never that the provider said no.
type Forwarder interface {
	Forward(ctx context.Context, target router.Target, body []byte) (*Response, error)
}

type forwarder struct {
	client  *fasthttp.Client
	breaker CircuitBreaker
	timeout time.Duration
	logger  *logrus.Logger
}

func NewForwarder(cfg config.UpstreamConfig, logger *logrus.Logger) Forwarder {
	client := &fasthttp.Client{
		ReadTimeout:                   time.Duration(cfg.TimeoutSeconds) * time.Second,
		WriteTimeout:                  time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxConnsPerHost:               16384,
		MaxIdleConnDuration:           120 * time.Second,
		ReadBufferSize:                32768,
		WriteBufferSize:               32768,
		NoDefaultUserAgentHeader:      true,
		DisableHeaderNamesNormalizing: true,
		DisablePathNormalizing:        true,
	}
	return &forwarder{
		client: client,
		breaker: NewCircuitBreaker(
			"upstream",
			time.Duration(cfg.BreakerCooldown)*time.Second,
			cfg.BreakerMaxFailures,
		),
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:  logger,
	}
}

func (f *forwarder) Forward(ctx context.Context, target router.Target, body []byte) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(httpReq)
		fasthttp.ReleaseResponse(httpResp)
	}()

	httpReq.SetRequestURI(target.URL)
	httpReq.Header.SetMethod(fasthttp.MethodPost)
	httpReq.Header.SetContentType("application/json")
	httpReq.Header.Set("Accept-Encoding", "zstd, br, gzip, deflate")
	for k, v := range target.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.SetBodyRaw(body)

	err := f.breaker.Execute(func() error {
		return f.client.DoTimeout(httpReq, httpResp, f.timeout)
	})
	if err != nil {
		f.logger.WithError(err).WithField("target", target.URL).Error("upstream request failed")
		return nil, err
	}

	statusCode := httpResp.StatusCode()
	if statusCode <= 0 || statusCode >= 600 {
		return nil, fmt.Errorf("invalid upstream status code: %d", statusCode)
	}

	respBody := make([]byte, len(httpResp.Body()))
	copy(respBody, httpResp.Body())

	decoded, err := decodeBody(string(httpResp.Header.Peek("Content-Encoding")), respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to decode upstream response: %w", err)
	}

	return &Response{StatusCode: statusCode, Body: decoded}, nil
}
