package latitude

import (
	"encoding/json"
	"fmt"
)

// EventName is the SSE "event:" field of a stream frame.
type EventName string

const (
	EventLatitude EventName = "latitude-event"
	EventProvider EventName = "provider-event"
)

type ChainEventType string

const (
	ChainStarted        ChainEventType = "chain-started"
	StepStarted         ChainEventType = "step-started"
	ProviderStarted     ChainEventType = "provider-started"
	ProviderCompleted   ChainEventType = "provider-completed"
	ToolsStarted        ChainEventType = "tools-started"
	ToolCompleted       ChainEventType = "tool-completed"
	StepCompleted       ChainEventType = "step-completed"
	ChainCompleted      ChainEventType = "chain-completed"
	ChainErrored        ChainEventType = "chain-error"
	IntegrationWakingUp ChainEventType = "integration-waking-up"
)

func (t ChainEventType) Valid() bool {
	switch t {
	case ChainStarted, StepStarted, ProviderStarted, ProviderCompleted, ToolsStarted,
		ToolCompleted, StepCompleted, ChainCompleted, ChainErrored, IntegrationWakingUp:
		return true
	}
	return false
}

// Terminal reports whether no further event follows for the same uuid.
func (t ChainEventType) Terminal() bool {
	return t == ChainCompleted || t == ChainErrored
}

type ProviderEventType string

const (
	ProviderTextDelta  ProviderEventType = "text-delta"
	ProviderReasoning  ProviderEventType = "reasoning"
	ProviderToolCall   ProviderEventType = "tool-call"
	ProviderToolResult ProviderEventType = "tool-result"
	ProviderFinish     ProviderEventType = "finish"
	ProviderError      ProviderEventType = "error"
)

// StreamEvent is one decoded frame. Exactly one of Chain and Provider is set
// for the two known event names; Data always holds the frame payload as sent.
type StreamEvent struct {
	Event EventName
	Data  json.RawMessage

	Chain    *ChainEvent
	Provider *ProviderEvent
}

// ChainEvent is a platform event. Every chain event carries the full
// conversation up to that point in Messages.
type ChainEvent struct {
	Type      ChainEventType `json:"type"`
	Timestamp int64          `json:"timestamp"`
	UUID      string         `json:"uuid"`
	Messages  []Message      `json:"messages"`

	// provider-completed, chain-completed
	Response     *ChainResponse `json:"response,omitempty"`
	TokenUsage   *Usage         `json:"tokenUsage,omitempty"`
	FinishReason string         `json:"finishReason,omitempty"`

	// tools-started, chain-completed
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`

	// chain-error
	Error *ChainError `json:"error,omitempty"`
}

type ChainError struct {
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ProviderEvent is a model-provider delta relayed by the platform. Types
// other than the ProviderEventType constants are passed through untouched in
// Raw.
type ProviderEvent struct {
	Type ProviderEventType

	TextDelta string

	ToolCallID string
	ToolName   string
	Args       json.RawMessage
	Result     json.RawMessage

	FinishReason string
	Usage        *Usage
	Error        string

	Raw json.RawMessage
}

type providerEventWire struct {
	Type         ProviderEventType `json:"type,omitempty"`
	TextDelta    string            `json:"textDelta,omitempty"`
	Text         string            `json:"text,omitempty"`
	Delta        string            `json:"delta,omitempty"`
	ToolCallID   string            `json:"toolCallId,omitempty"`
	ToolName     string            `json:"toolName,omitempty"`
	Args         json.RawMessage   `json:"args,omitempty"`
	Input        json.RawMessage   `json:"input,omitempty"`
	Result       json.RawMessage   `json:"result,omitempty"`
	Output       json.RawMessage   `json:"output,omitempty"`
	FinishReason string            `json:"finishReason,omitempty"`
	Usage        *Usage            `json:"usage,omitempty"`
	Error        json.RawMessage   `json:"error,omitempty"`
}

// UnmarshalJSON accepts both the older (textDelta/args/result) and newer
// (text/delta/input/output) field names.
func (e *ProviderEvent) UnmarshalJSON(b []byte) error {
	var w providerEventWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = ProviderEvent{
		Type:         w.Type,
		TextDelta:    firstNonEmpty(w.TextDelta, w.Text, w.Delta),
		ToolCallID:   w.ToolCallID,
		ToolName:     w.ToolName,
		Args:         firstRaw(w.Args, w.Input),
		Result:       firstRaw(w.Result, w.Output),
		FinishReason: w.FinishReason,
		Usage:        w.Usage,
		Error:        errorText(w.Error),
		Raw:          append(json.RawMessage(nil), b...),
	}
	return nil
}

func (e ProviderEvent) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	w := providerEventWire{
		Type:         e.Type,
		TextDelta:    e.TextDelta,
		ToolCallID:   e.ToolCallID,
		ToolName:     e.ToolName,
		Args:         e.Args,
		Result:       e.Result,
		FinishReason: e.FinishReason,
		Usage:        e.Usage,
	}
	if e.Error != "" {
		w.Error, _ = json.Marshal(e.Error)
	}
	return json.Marshal(w)
}

func decodeStreamEvent(name, data string) (StreamEvent, error) {
	ev := StreamEvent{Event: EventName(name), Data: json.RawMessage(data)}
	if !json.Valid(ev.Data) {
		return ev, fmt.Errorf("invalid %s payload: %.200s", name, data)
	}

	switch ev.Event {
	case EventLatitude:
		var ce ChainEvent
		if err := json.Unmarshal(ev.Data, &ce); err != nil {
			return ev, fmt.Errorf("decode %s: %w", name, err)
		}
		ev.Chain = &ce
	case EventProvider:
		var pe ProviderEvent
		if err := json.Unmarshal(ev.Data, &pe); err != nil {
			return ev, fmt.Errorf("decode %s: %w", name, err)
		}
		ev.Provider = &pe
	}
	return ev, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstRaw(vals ...json.RawMessage) json.RawMessage {
	for _, v := range vals {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

// errorText flattens an error payload that may be a string or an object with
// a message.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
