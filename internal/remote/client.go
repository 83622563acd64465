// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

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

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Configuration defaults.
const (
	// DefaultChatURL is the chat endpoint of a locally running assistant.
	DefaultChatURL = "http://127.0.0.1:8000/chat"

	// DefaultUploadURL is the upload endpoint of a locally running assistant.
	DefaultUploadURL = "http://127.0.0.1:8000/upload"

	// DefaultTimeout bounds a chat request, and the wait for an upload's
	// response once the file has been sent.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 1 * 1024 * 1024

	userAgent = "rigrun-assist/0.1.0"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration for the remote client.
type Config struct {
	ChatURL   string
	UploadURL string

	// Timeout is the chat request deadline and the upload response-header
	// timeout (default: 60s). Zero disables both. Upload bodies are not
	// bounded so large files can finish streaming.
	Timeout time.Duration

	// RequestsPerSecond paces outbound requests (0 = unlimited)
	RequestsPerSecond float64
	Burst             int

	// MaxResponseSize caps response bodies (default: 1MB)
	MaxResponseSize int64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		ChatURL:         DefaultChatURL,
		UploadURL:       DefaultUploadURL,
		Timeout:         DefaultTimeout,
		Burst:           1,
		MaxResponseSize: MaxResponseSize,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat and upload endpoints. It is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a client. A nil config uses DefaultConfig and a nil
// logger discards output.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg

	if c.ChatURL == "" {
		c.ChatURL = DefaultChatURL
	}
	if c.UploadURL == "" {
		c.UploadURL = DefaultUploadURL
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = MaxResponseSize
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if c.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), c.Burst)
	}

	return &Client{
		config: c,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   2,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: c.Timeout,
			},
		},
		limiter: limiter,
		logger:  logger.Named("remote"),
	}
}

// WithHTTPClient replaces the underlying HTTP client. The upload reply
// timeout lives on the default transport and is lost with it.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// ChatURL returns the configured chat endpoint.
func (c *Client) ChatURL() string {
	return c.config.ChatURL
}

// UploadURL returns the configured upload endpoint.
func (c *Client) UploadURL() string {
	return c.config.UploadURL
}

// =============================================================================
// CHAT
// =============================================================================

// Chat posts one message to the chat endpoint and returns the reply.
//
// Transport failures return KindNetwork, non-2xx statuses KindRemote, and
// a success body without a string "reply" KindMalformed.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.ChatURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var parsed chatReplyBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Kind: KindMalformed, Message: "failed to parse chat response", Cause: err}
	}
	if parsed.Reply == nil {
		return nil, &Error{Kind: KindMalformed, Message: "chat response has no reply"}
	}

	return &ChatResponse{Reply: *parsed.Reply}, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do waits for the limiter, performs the request and returns the body of a
// 2xx response.
func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindNetwork, Message: "request not sent", Cause: err}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", duration),
			zap.Error(err))
		msg := "request failed"
		if isTimeout(err) {
			msg = "request timed out"
		}
		return nil, &Error{Kind: KindNetwork, Message: msg, Cause: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration))

	body, err := c.readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromResponse(resp.StatusCode, body)
	}
	return body, nil
}

// readResponse reads the body up to the configured limit.
func (c *Client) readResponse(resp *http.Response) ([]byte, error) {
	limit := c.config.MaxResponseSize
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "failed to read response", Cause: err}
	}
	if int64(len(body)) > limit {
		return nil, &Error{
			Kind:    KindMalformed,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("response exceeded maximum size of %d bytes", limit),
		}
	}
	return body, nil
}

// errorFromResponse builds a KindRemote error, keeping the server's message
// when the body carries one.
func errorFromResponse(status int, body []byte) error {
	if msg := serverMessage(body); msg != "" {
		return &Error{Kind: KindRemote, Status: status, Message: msg, Detail: true}
	}
	return &Error{Kind: KindRemote, Status: status, Message: http.StatusText(status)}
}

// serverMessage extracts a human-readable message from an error body.
func serverMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	for _, v := range []any{eb.Detail, eb.Message, eb.Error} {
		switch m := v.(type) {
		case string:
			if s := strings.TrimSpace(m); s != "" {
				return s
			}
		case map[string]any:
			if s, ok := m["message"].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// isTimeout reports whether err is a deadline or client timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
