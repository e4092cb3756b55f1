package latitude

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitop-dev/latitude/internal/httpx"
)

// Client talks to the platform's HTTP API. It holds no per-call state and is
// safe for concurrent use; every Run, Chat or Attach gets its own stream and
// tool-call loop.
type Client struct {
	cfg    Config
	routes router
	log    *zap.Logger
	err    error
}

// New returns a client for cfg. Configuration problems (a malformed BaseURL)
// are reported by the first call made with the client.
func New(cfg Config) *Client {
	c := &Client{}
	cfg, err := normalizeConfig(cfg)
	c.cfg = cfg
	c.log = cfg.Logger
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if err != nil {
		c.err = err
		return c
	}
	c.routes, c.err = newRouter(cfg.BaseURL, cfg.APIVersion)
	return c
}

func (c *Client) Config() Config { return c.cfg }

// ready reports a configuration error from New. Every operation checks it
// before building a route.
func (c *Client) ready() error {
	if c.err != nil {
		return badRequest("invalid client config: %v", c.err)
	}
	return nil
}

func (c *Client) retryPolicy(op string) httpx.RetryPolicy {
	return httpx.RetryPolicy{
		MaxRetries: c.cfg.MaxRetries,
		Delay:      c.cfg.RetryDelay,
		OnRetry: func(attempt int, reason error) {
			c.log.Debug("retrying request",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Error(reason))
		},
	}
}

// send issues one request and returns the response only for 2xx statuses.
// Any other outcome is an *Error.
func (c *Client) send(ctx context.Context, op, method, url string, body any, stream bool) (*http.Response, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if c.cfg.APIKey == "" {
		return nil, &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "api key is required"}
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, badRequest("encode request: %v", err)
		}
		payload = b
	}

	h := make(http.Header)
	for k, v := range c.cfg.Headers {
		h.Set(k, v)
	}
	h.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		h.Set("Content-Type", "application/json")
	}
	if stream {
		h.Set("Accept", "text/event-stream")
	} else {
		h.Set("Accept", "application/json")
	}

	c.log.Debug("request", zap.String("op", op), zap.String("method", method), zap.String("url", url))

	resp, err := httpx.Do(ctx, c.cfg.HTTPClient, httpx.Request{
		Method: method,
		URL:    url,
		Header: h,
		Body:   payload,
	}, c.retryPolicy(op))
	if err != nil {
		return nil, networkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		e := decodeErrorResponse(resp)
		c.log.Debug("request failed",
			zap.String("op", op),
			zap.Int("status", e.Status),
			zap.String("code", e.Code))
		return nil, e
	}
	return resp, nil
}

// sendJSON performs a synchronous call and decodes the 2xx body into out.
func (c *Client) sendJSON(ctx context.Context, op, method, url string, body, out any) error {
	ctx, cancel := applyTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.send(ctx, op, method, url, body, false)
	if err != nil {
		return err
	}
	defer c.release(resp.Body)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return networkError(ctx.Err())
		}
		return internalError("decode "+op+" response: "+err.Error(), err)
	}
	return nil
}

func (c *Client) release(body interface{ Close() error }) {
	if err := body.Close(); err != nil {
		c.log.Warn("release response body", zap.Error(err))
	}
}

func (c *Client) project(override int) (int, error) {
	id := c.cfg.ProjectID
	if override != 0 {
		id = override
	}
	if id <= 0 {
		return 0, badRequest("project id is required")
	}
	return id, nil
}

func (c *Client) version(override string) string {
	if override != "" {
		return override
	}
	return c.cfg.VersionUUID
}

func validateConversationUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return badRequest("invalid conversation uuid %q", id)
	}
	return nil
}

type toolResultRequest struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result"`
	IsError    bool   `json:"isError"`
}

// ToolResult is what a tool handler produced for one tool call.
type ToolResult struct {
	ToolCallID string
	Result     any
	IsError    bool
}

// SubmitToolResult sends a tool result so a paused chain can resume.
func (c *Client) SubmitToolResult(ctx context.Context, r ToolResult) error {
	if err := c.ready(); err != nil {
		return err
	}
	if r.ToolCallID == "" {
		return badRequest("tool call id is required")
	}
	return c.sendJSON(ctx, "tool-results", http.MethodPost, c.routes.toolResults(), toolResultRequest(r), nil)
}

// Stop asks the platform to abort a running conversation.
func (c *Client) Stop(ctx context.Context, conversationUUID string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := validateConversationUUID(conversationUUID); err != nil {
		return err
	}
	return c.sendJSON(ctx, "stop", http.MethodPost, c.routes.conversation(conversationUUID, "stop"), struct{}{}, nil)
}
