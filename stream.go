package latitude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/bitop-dev/latitude/internal/sse"
)

type streamState int

const (
	stateIdle streamState = iota
	stateStreaming
	stateCompleted
	stateErrored
)

func (s streamState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateStreaming:
		return "streaming"
	case stateCompleted:
		return "completed"
	case stateErrored:
		return "errored"
	}
	return "unknown"
}

type consumeOptions struct {
	OnEvent    func(StreamEvent)
	OnToolCall func(ctx context.Context, call ToolCallDetails, args json.RawMessage) error
	Logger     *zap.Logger
}

// streamConsumer aggregates the frames of one run. It is owned by a single
// goroutine and never shared between runs.
type streamConsumer struct {
	opts  consumeOptions
	log   *zap.Logger
	state streamState

	uuid         string
	conversation []Message

	// response is the last provider-completed payload; final is the
	// chain-completed payload, used when no provider step reported one.
	response *ChainResponse
	final    *ChainResponse
}

func newStreamConsumer(opts consumeOptions) *streamConsumer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &streamConsumer{opts: opts, log: log}
}

// consumeStream reads body until EOF or a terminal error and closes it on
// every path.
func consumeStream(ctx context.Context, body io.ReadCloser, opts consumeOptions) (*GenerationResponse, error) {
	c := newStreamConsumer(opts)
	defer func() {
		if err := body.Close(); err != nil {
			c.log.Warn("close event stream", zap.Error(err))
		}
	}()
	return c.consume(ctx, body)
}

func (c *streamConsumer) consume(ctx context.Context, r io.Reader) (*GenerationResponse, error) {
	c.state = stateStreaming

	dec := sse.NewDecoder(r)
	for dec.Next() {
		f, ok := sse.ParseFrame(dec.Block())
		if !ok || f.Data == "" {
			continue
		}
		done, err := c.handle(ctx, f)
		if err != nil {
			return nil, c.fail(err)
		}
		if done {
			return c.finish()
		}
	}
	if err := dec.ExpectNoError(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		e := networkError(err)
		e.Status = http.StatusInternalServerError
		return nil, c.fail(e)
	}
	return c.finish()
}

func (c *streamConsumer) fail(err error) *Error {
	c.state = stateErrored
	e := asError(err)
	c.log.Debug("stream failed", zap.String("code", e.Code), zap.Error(e))
	return e
}

// handle applies one frame and reports whether it ended the chain.
func (c *streamConsumer) handle(ctx context.Context, f sse.Frame) (bool, error) {
	ev, err := decodeStreamEvent(f.Event, f.Data)
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(ev)
	}
	if err != nil {
		return false, internalError(err.Error(), err)
	}

	switch {
	case ev.Chain != nil:
		c.log.Debug("chain event", zap.String("type", string(ev.Chain.Type)), zap.String("uuid", ev.Chain.UUID))
		if err := c.applyChain(ev.Chain); err != nil {
			return false, err
		}
		return ev.Chain.Type.Terminal(), nil
	case ev.Provider != nil:
		return false, c.applyProvider(ctx, ev.Provider)
	}
	return false, nil
}

func (c *streamConsumer) applyChain(ev *ChainEvent) error {
	// Types added by newer platforms are forwarded to OnEvent only.
	if !ev.Type.Valid() {
		c.log.Debug("unknown chain event type", zap.String("type", string(ev.Type)))
		return nil
	}
	if ev.UUID != "" {
		c.uuid = ev.UUID
	}
	// Every chain event carries the full transcript so far.
	if ev.Messages != nil {
		c.conversation = ev.Messages
	}

	switch ev.Type {
	case ProviderCompleted:
		if ev.Response != nil {
			r := *ev.Response
			c.response = &r
		}
	case ChainCompleted:
		if ev.Response != nil {
			r := *ev.Response
			c.final = &r
		}
	case ChainErrored:
		return aiRunError(ev.Error)
	}
	return nil
}

func (c *streamConsumer) applyProvider(ctx context.Context, ev *ProviderEvent) error {
	if ev.Type != ProviderToolCall {
		return nil
	}
	call := ToolCallDetails{
		ToolCallID:       ev.ToolCallID,
		ToolName:         ev.ToolName,
		ConversationUUID: c.uuid,
		Messages:         append([]Message(nil), c.conversation...),
	}
	if c.opts.OnToolCall == nil {
		return &NoSuchToolError{ToolName: call.ToolName, ToolCallID: call.ToolCallID}
	}
	c.log.Debug("tool call", zap.String("tool", call.ToolName), zap.String("tool_call_id", call.ToolCallID))
	return c.opts.OnToolCall(ctx, call, ev.Args)
}

func (c *streamConsumer) finish() (*GenerationResponse, error) {
	resp := c.response
	if resp == nil {
		resp = c.final
	}
	if c.uuid == "" || resp == nil {
		return nil, c.fail(internalError("stream ended without a final response", nil))
	}
	c.state = stateCompleted
	return &GenerationResponse{
		UUID:         c.uuid,
		Conversation: c.conversation,
		Response:     *resp,
	}, nil
}
