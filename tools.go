package latitude

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitop-dev/latitude/internal/schema"
)

type Schema struct {
	JSON json.RawMessage
}

func JSONSchema(raw json.RawMessage) Schema {
	return Schema{JSON: raw}
}

// Tool is a client-side function the platform may call during a run. Only
// the name is sent to the platform; the prompt declares the tool itself.
type Tool struct {
	Name        string
	Description string

	// InputSchema, when set, is checked against the call arguments before the
	// handler runs.
	InputSchema Schema
	Handler     ToolHandler
}

type ToolHandler func(ctx context.Context, args json.RawMessage, call ToolCallDetails) (any, error)

// ToolCallDetails describes the call being handled and the conversation as of
// the tool-call event.
type ToolCallDetails struct {
	ToolCallID       string
	ToolName         string
	ConversationUUID string
	Messages         []Message
}

type ToolSpec[Input any, Output any] struct {
	Description string
	InputSchema Schema
	Execute     func(ctx context.Context, input Input, call ToolCallDetails) (Output, error)
}

// NewTool creates a Tool with typed input and output. Arguments that do not
// unmarshal into Input are reported as invalid tool input.
func NewTool[Input any, Output any](name string, spec ToolSpec[Input, Output]) Tool {
	if name == "" {
		panic("tool name is required")
	}
	if spec.Execute == nil {
		panic(fmt.Sprintf("tool %q Execute is required", name))
	}
	return Tool{
		Name:        name,
		Description: spec.Description,
		InputSchema: spec.InputSchema,
		Handler: func(ctx context.Context, args json.RawMessage, call ToolCallDetails) (any, error) {
			var in Input
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, &InvalidToolInputError{ToolName: name, ToolCallID: call.ToolCallID, Cause: err}
			}
			return spec.Execute(ctx, in, call)
		},
	}
}

func findTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

func toolNames(tools []Tool) []string {
	if len(tools) == 0 {
		return nil
	}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return names
}

// toolDispatcher runs one tool call at a time for a single stream and submits
// each result so the chain can resume.
type toolDispatcher struct {
	tools  []Tool
	submit func(ctx context.Context, r ToolResult) error
	log    *zap.Logger
	instr  Instrumentation
}

func (d *toolDispatcher) dispatch(ctx context.Context, call ToolCallDetails, args json.RawMessage) error {
	t, ok := findTool(d.tools, call.ToolName)
	if !ok || t.Handler == nil {
		return &NoSuchToolError{ToolName: call.ToolName, ToolCallID: call.ToolCallID}
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}

	result := d.execute(ctx, t, call, args)

	d.log.Debug("submitting tool result",
		zap.String("tool", t.Name),
		zap.String("tool_call_id", call.ToolCallID),
		zap.Bool("is_error", result.IsError))

	if err := d.submit(ctx, result); err != nil {
		return &ToolResultError{ToolName: t.Name, ToolCallID: call.ToolCallID, Cause: err}
	}
	return nil
}

// execute never fails the run: invalid input and handler errors become error
// results for the platform.
func (d *toolDispatcher) execute(ctx context.Context, t Tool, call ToolCallDetails, args json.RawMessage) ToolResult {
	res := ToolResult{ToolCallID: call.ToolCallID}

	if len(t.InputSchema.JSON) > 0 {
		if err := schema.Validate(t.InputSchema.JSON, args); err != nil {
			ierr := &InvalidToolInputError{ToolName: t.Name, ToolCallID: call.ToolCallID, Cause: err}
			d.log.Debug("invalid tool input", zap.String("tool", t.Name), zap.Error(err))
			res.IsError = true
			res.Result = ierr.Error()
			return res
		}
	}

	// A handler that already started is allowed to finish even if the run is
	// canceled.
	hctx, end := startSpan(context.WithoutCancel(ctx), d.instr, "latitude.tool", map[string]any{
		"tool":         t.Name,
		"tool_call_id": call.ToolCallID,
	})
	val, err := t.Handler(hctx, args, call)
	if err != nil {
		end(&ToolExecutionError{ToolName: t.Name, ToolCallID: call.ToolCallID, Cause: err})
		d.log.Debug("tool handler failed", zap.String("tool", t.Name), zap.Error(err))
		res.IsError = true
		res.Result = err.Error()
		return res
	}
	end(nil)
	res.Result = val
	return res
}
