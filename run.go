package latitude

import (
	"context"
	"net/http"
)

// Callbacks receive the outcome of Run, Chat and Attach. When OnError is set
// every failure is handed to it and the call returns (nil, nil); otherwise
// the failure is returned.
type Callbacks struct {
	// OnEvent sees every stream frame in wire order, before the client acts
	// on it. Not called for synchronous calls.
	OnEvent    func(StreamEvent)
	OnFinished func(*GenerationResponse)
	OnError    func(*Error)
}

type RunOptions struct {
	Callbacks

	// ProjectID and VersionUUID override the Config values.
	ProjectID   int
	VersionUUID string

	Parameters       map[string]any
	CustomIdentifier string
	UserMessage      string

	Stream bool
	// Background enqueues the run and returns a response carrying only the
	// conversation uuid. Use Attach to follow it.
	Background bool

	Tools []Tool
}

type ChatOptions struct {
	Callbacks
	Stream bool
	Tools  []Tool
}

type AttachOptions struct {
	Callbacks
	Stream bool
	Tools  []Tool
}

type runRequest struct {
	Path             string         `json:"path"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	CustomIdentifier string         `json:"customIdentifier,omitempty"`
	UserMessage      string         `json:"userMessage,omitempty"`
	Stream           bool           `json:"stream"`
	Background       bool           `json:"background,omitempty"`
	Tools            []string       `json:"tools,omitempty"`
}

type chatRequest struct {
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Tools    []string  `json:"tools,omitempty"`
}

type attachRequest struct {
	Stream bool `json:"stream"`
}

// Run executes the prompt at path.
func (c *Client) Run(ctx context.Context, path string, opts RunOptions) (*GenerationResponse, error) {
	ctx, end := startSpan(ctx, c.cfg.Instrumentation, "latitude.run", map[string]any{
		"path":       path,
		"stream":     opts.Stream,
		"background": opts.Background,
	})
	resp, err := c.run(ctx, path, opts)
	end(err)
	return deliver(opts.Callbacks, resp, err)
}

func (c *Client) run(ctx context.Context, path string, opts RunOptions) (*GenerationResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, badRequest("prompt path is required")
	}
	projectID, err := c.project(opts.ProjectID)
	if err != nil {
		return nil, err
	}

	body := runRequest{
		Path:             path,
		Parameters:       opts.Parameters,
		CustomIdentifier: opts.CustomIdentifier,
		UserMessage:      opts.UserMessage,
		Stream:           opts.Stream && !opts.Background,
		Background:       opts.Background,
		Tools:            toolNames(opts.Tools),
	}
	url := c.routes.run(projectID, c.version(opts.VersionUUID))

	if opts.Background {
		var out struct {
			UUID string `json:"uuid"`
		}
		if err := c.sendJSON(ctx, "run", http.MethodPost, url, body, &out); err != nil {
			return nil, err
		}
		return &GenerationResponse{UUID: out.UUID}, nil
	}
	return c.execute(ctx, "run", url, body, opts.Stream, opts.Tools, opts.OnEvent)
}

// Chat continues the conversation with new messages.
func (c *Client) Chat(ctx context.Context, conversationUUID string, messages []Message, opts ChatOptions) (*GenerationResponse, error) {
	ctx, end := startSpan(ctx, c.cfg.Instrumentation, "latitude.chat", map[string]any{
		"conversation_uuid": conversationUUID,
		"stream":            opts.Stream,
	})
	resp, err := c.chat(ctx, conversationUUID, messages, opts)
	end(err)
	return deliver(opts.Callbacks, resp, err)
}

func (c *Client) chat(ctx context.Context, conversationUUID string, messages []Message, opts ChatOptions) (*GenerationResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := validateConversationUUID(conversationUUID); err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, badRequest("at least one message is required")
	}
	for i, m := range messages {
		if err := m.Validate(); err != nil {
			return nil, badRequest("message %d: %v", i, err)
		}
	}

	body := chatRequest{Messages: messages, Stream: opts.Stream, Tools: toolNames(opts.Tools)}
	url := c.routes.conversation(conversationUUID, "chat")
	return c.execute(ctx, "chat", url, body, opts.Stream, opts.Tools, opts.OnEvent)
}

// Attach follows a conversation that is already running, typically one
// started with RunOptions.Background.
func (c *Client) Attach(ctx context.Context, conversationUUID string, opts AttachOptions) (*GenerationResponse, error) {
	ctx, end := startSpan(ctx, c.cfg.Instrumentation, "latitude.attach", map[string]any{
		"conversation_uuid": conversationUUID,
		"stream":            opts.Stream,
	})
	resp, err := c.attach(ctx, conversationUUID, opts)
	end(err)
	return deliver(opts.Callbacks, resp, err)
}

func (c *Client) attach(ctx context.Context, conversationUUID string, opts AttachOptions) (*GenerationResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := validateConversationUUID(conversationUUID); err != nil {
		return nil, err
	}
	url := c.routes.conversation(conversationUUID, "attach")
	return c.execute(ctx, "attach", url, attachRequest{Stream: opts.Stream}, opts.Stream, opts.Tools, opts.OnEvent)
}

// execute sends a run-like request and reads either the event stream or the
// single JSON body.
func (c *Client) execute(ctx context.Context, op, url string, body any, stream bool, tools []Tool, onEvent func(StreamEvent)) (*GenerationResponse, error) {
	if !stream {
		var out GenerationResponse
		if err := c.sendJSON(ctx, op, http.MethodPost, url, body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	resp, err := c.send(ctx, op, http.MethodPost, url, body, true)
	if err != nil {
		return nil, err
	}
	d := &toolDispatcher{
		tools:  tools,
		submit: c.SubmitToolResult,
		log:    c.log,
		instr:  c.cfg.Instrumentation,
	}
	return consumeStream(ctx, resp.Body, consumeOptions{
		OnEvent:    onEvent,
		OnToolCall: d.dispatch,
		Logger:     c.log,
	})
}

func deliver(cb Callbacks, resp *GenerationResponse, err error) (*GenerationResponse, error) {
	if err != nil {
		e := asError(err)
		if cb.OnError != nil {
			cb.OnError(e)
			return nil, nil
		}
		return nil, e
	}
	if cb.OnFinished != nil {
		cb.OnFinished(resp)
	}
	return resp, nil
}
