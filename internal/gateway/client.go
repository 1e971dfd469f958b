// Package gateway is the HTTP client for the platform gateway.
//
// Every call is exactly one round trip with no retries. A 2xx response is
// decoded into the caller's value; anything else comes back as *Error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/observability"
)

const maxErrorBody = 4 << 10

// Client talks to a fixed gateway base address.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records every round trip.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTimeout sets a client-side timeout, whatever order the options come in.
// It applies to a copy, so a client passed to WithHTTPClient is not modified.
// Zero keeps the client's own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient builds a client for baseURL.
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the gateway address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Bearer returns the Authorization header for token.
func Bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// Get performs GET path.
func (c *Client) Get(ctx context.Context, path string, headers http.Header, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, headers, out)
}

// Post performs POST path with body encoded as JSON. A nil body sends no content.
func (c *Client) Post(ctx context.Context, path string, body any, headers http.Header, out any) error {
	return c.do(ctx, http.MethodPost, path, body, headers, out)
}

// Put performs PUT path with body encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, body any, headers http.Header, out any) error {
	return c.do(ctx, http.MethodPut, path, body, headers, out)
}

// Delete performs DELETE path.
func (c *Client) Delete(ctx context.Context, path string, headers http.Header, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, headers, out)
}

// Ping checks that the gateway answers at all. Any HTTP status counts as up.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, http.MethodHead, "/", nil, nil, nil)
	if gwErr, ok := AsError(err); ok && !gwErr.Transport() {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers http.Header, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Method: method, Path: path, Err: fmt.Errorf("encode request body: %w", err)}
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Method: method, Path: path, Err: fmt.Errorf("build request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordGatewayCall(method, path, 0, elapsed)
		c.logger.Debug("gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &Error{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.RecordGatewayCall(method, path, resp.StatusCode, elapsed)
	c.logger.Debug("gateway request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    serverMessage(raw),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// serverMessage pulls the human readable message out of an error body. It
// understands {"message": "..."}, {"error": "..."} and {"error": {"message": "..."}},
// and falls back to short plain-text bodies.
func serverMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if len(body.Error) > 0 {
			var s string
			if json.Unmarshal(body.Error, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
		return ""
	}

	if raw[0] == '<' {
		return ""
	}
	return string(raw)
}
