package upstream

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PromptSentinel/SentinelGate/pkg/config"
	"github.com/PromptSentinel/SentinelGate/pkg/router"
)

func newTestForwarder(timeoutSeconds int, maxFailures uint32) Forwarder {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewForwarder(config.UpstreamConfig{
		TimeoutSeconds:     timeoutSeconds,
		BreakerMaxFailures: maxFailures,
		BreakerCooldown:    30,
	}, logger)
}

func TestForward_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"model":"gpt-4o"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1"}`))
	}))
	defer server.Close()

	f := newTestForwarder(5, 5)
	resp, err := f.Forward(context.Background(), router.Target{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer sk-test"},
	}, []byte(`{"model":"gpt-4o"}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"chatcmpl-1"}`, string(resp.Body))
}

func TestForward_Non2xxIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	f := newTestForwarder(5, 5)
	resp, err := f.Forward(context.Background(), router.Target{URL: server.URL}, []byte(`{}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "rate limited")
}

func TestForward_DecodesGzipResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "gzip")

		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"id":"compressed"}`))
		_ = gz.Close()
	}))
	defer server.Close()

	f := newTestForwarder(5, 5)
	resp, err := f.Forward(context.Background(), router.Target{URL: server.URL}, []byte(`{}`))

	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"compressed"}`, string(resp.Body))
}

func TestForward_ConnectionFailure(t *testing.T) {
	f := newTestForwarder(1, 5)
	resp, err := f.Forward(context.Background(), router.Target{URL: "http://127.0.0.1:1"}, []byte(`{}`))

	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestForward_ContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestForwarder(5, 5)
	_, err := f.Forward(ctx, router.Target{URL: "http://127.0.0.1:1"}, []byte(`{}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForward_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	f := newTestForwarder(1, 2)
	target := router.Target{URL: "http://127.0.0.1:1"}

	_, err := f.Forward(context.Background(), target, []byte(`{}`))
	require.Error(t, err)
	_, err = f.Forward(context.Background(), target, []byte(`{}`))
	require.Error(t, err)

	_, err = f.Forward(context.Background(), target, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestDecodeBody_PassthroughWithoutEncoding(t *testing.T) {
	body := []byte(`{"plain":true}`)
	out, err := decodeBody("", body)
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestDecodeBody_UnsupportedEncoding(t *testing.T) {
	_, err := decodeBody("snappy", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content-encoding")
}

// The forwarder advertises deltas it can decode, so a delta round trip through
// a real server covers the negotiation end to end.
func TestForward_StreamURLUnusedForBufferedCalls(t *testing.T) {
	var hitPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := newTestForwarder(5, 5)
	_, err := f.Forward(context.Background(), router.Target{
		URL:       server.URL + "/v1/chat/completions",
		StreamURL: server.URL + "/v1/should-not-be-hit",
	}, []byte(`{}`))

	require.NoError(t, err)
	assert.Equal(t, "/v1/chat/completions", hitPath)
}

func TestDecodeBody_ChainedEncodings(t *testing.T) {
	var inner bytes.Buffer
	gz := gzip.NewWriter(&inner)
	_, err := gz.Write([]byte(`{"nested":true}`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	var outer bytes.Buffer
	br := brotli.NewWriter(&outer)
	_, err = br.Write(inner.Bytes())
	require.NoError(t, err)
	require.NoError(t, br.Close())

	out, err := decodeBody("gzip, br", outer.Bytes())
	require.NoError(t, err)
	assert.JSONEq(t, `{"nested":true}`, string(out))
}

func TestDecodeBody_Zstd(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(`{"zstd":true}`))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	out, err := decodeBody("zstd", buf.Bytes())
	require.NoError(t, err)
	assert.JSONEq(t, `{"zstd":true}`, string(out))
}
