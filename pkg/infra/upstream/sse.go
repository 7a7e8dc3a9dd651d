package upstream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/PromptSentinel/SentinelGate/pkg/router"
)

// StatusError reports a provider stream that opened at the transport level
// but was refused with a non-2xx status. Body carries the provider's error
// payload so the handler can normalize it for the client.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream stream request failed with status %d", e.StatusCode)
}

// ExtractFunc pulls the text delta out of one SSE data payload. done reports
// the provider's end-of-stream event; text may be empty for bookkeeping
// events.
type ExtractFunc func(data []byte) (text string, done bool)

// Source adapts a provider SSE response body into a pull-based delta source.
// It is single-reader: Next and Close share the response body.
type Source struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	extract ExtractFunc
	done    bool

	closeOnce sync.Once
}

// OpenStream issues the streaming request and hands back a Source once the
// provider has accepted it. The request is bound to ctx, so cancelling the
// caller's context tears down the upstream read mid-stream. A non-2xx status
// is returned as *StatusError with up to 64KB of the provider's body.
func OpenStream(ctx context.Context, client *http.Client, target router.Target, body []byte, extract ExtractFunc) (*Source, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.StreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Connection", "keep-alive")
	for k, v := range target.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make streaming request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var preview bytes.Buffer
		_, _ = io.CopyN(&preview, resp.Body, 64*1024)
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: preview.Bytes()}
	}

	sc := bufio.NewScanner(resp.Body)
	buf := make([]byte, 0, 512*1024)
	sc.Buffer(buf, 2*1024*1024)

	return &Source{body: resp.Body, scanner: sc, extract: extract}, nil
}

// Next returns the next text delta, or io.EOF at natural stream end. The
// provider's terminal event may carry a final delta; it is served first and
// EOF follows on the next call.
func (s *Source) Next(ctx context.Context) (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		text, done := s.extract([]byte(data))
		if done {
			s.done = true
			if text != "" {
				return text, nil
			}
			return "", io.EOF
		}
		if text == "" {
			continue
		}
		return text, nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		if errors.Is(err, io.EOF) ||
			strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") ||
			strings.Contains(strings.ToLower(err.Error()), "connection reset by peer") {
			return "", io.EOF
		}
		return "", fmt.Errorf("sse scanner error: %w", err)
	}
	return "", io.EOF
}

func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}
