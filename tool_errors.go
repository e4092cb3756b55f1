package latitude

import "errors"

// NoSuchToolError means the platform asked for a tool the caller did not
// register. It fails the run.
type NoSuchToolError struct {
	ToolName   string
	ToolCallID string
}

func (e *NoSuchToolError) Error() string {
	if e == nil {
		return ""
	}
	return "no handler registered for tool " + e.ToolName
}

func IsNoSuchTool(err error) bool {
	var e *NoSuchToolError
	return errors.As(err, &e)
}

// InvalidToolInputError means the tool-call arguments did not match the
// tool's InputSchema. It is reported back to the platform as a tool error.
type InvalidToolInputError struct {
	ToolName   string
	ToolCallID string
	Cause      error
}

func (e *InvalidToolInputError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return "invalid tool input for " + e.ToolName + ": " + e.Cause.Error()
	}
	return "invalid tool input for " + e.ToolName
}

func (e *InvalidToolInputError) Unwrap() error { return e.Cause }

func IsInvalidToolInput(err error) bool {
	var e *InvalidToolInputError
	return errors.As(err, &e)
}

// ToolResultError means a tool ran but its result could not be submitted, so
// the chain cannot resume.
type ToolResultError struct {
	ToolName   string
	ToolCallID string
	Cause      error
}

func (e *ToolResultError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return "submit result for " + e.ToolName + ": " + e.Cause.Error()
	}
	return "submit result for " + e.ToolName
}

func (e *ToolResultError) Unwrap() error { return e.Cause }

// ToolExecutionError wraps an error returned by a tool handler. The run
// continues; the platform receives the message as an error result.
type ToolExecutionError struct {
	ToolName   string
	ToolCallID string
	Cause      error
}

func (e *ToolExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return "tool " + e.ToolName + " failed: " + e.Cause.Error()
	}
	return "tool " + e.ToolName + " failed"
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }
