package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rowboat-io/rowboat/internal/domain/model"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPConfig describes the HTTP sink endpoint.
type HTTPConfig struct {
	URL     string
	Timeout time.Duration
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Validate checks the destination URL once at startup.
func (c *HTTPConfig) Validate() error {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return errors.New("http sink: url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("http sink: invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("http sink: url must use http or https")
	}
	if u.Host == "" {
		return errors.New("http sink: url is missing a host")
	}
	return nil
}

// HTTPSink posts payloads to a single endpoint. Any 2xx response is success;
// everything else is a sink error whose description carries the status.
type HTTPSink struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

var _ Sink = (*HTTPSink)(nil)

// NewHTTPSink builds an HTTP sink from validated configuration.
func NewHTTPSink(cfg HTTPConfig, logger *slog.Logger) (*HTTPSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPSink{
		url:    strings.TrimSpace(cfg.URL),
		client: client,
		logger: logger,
	}, nil
}

// Kind implements Sink.
func (s *HTTPSink) Kind() model.SinkType { return model.SinkTypeHTTP }

// Deliver POSTs the payload as a JSON body. One attempt, no retries.
func (s *HTTPSink) Deliver(ctx context.Context, p Payload) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(p.Data))
	if err != nil {
		return Failure("build http request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Failure("post to "+s.url, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.WarnContext(ctx, "close sink response body failed", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		desc := strings.TrimSpace(string(body))
		if desc != "" {
			return Failuref("http sink returned status %d: %s", resp.StatusCode, desc)
		}
		return Failuref("http sink returned status %d", resp.StatusCode)
	}

	if _, err = io.Copy(io.Discard, resp.Body); err != nil {
		s.logger.WarnContext(ctx, "drain sink response body failed", "error", err)
	}

	s.logger.InfoContext(ctx, "http post complete",
		"url", s.url,
		"status", resp.StatusCode,
		"bytes_sent", len(p.Data))

	return Success()
}
