package latitude

import (
	"encoding/json"
	"fmt"
)

// Usage counts tokens. The prompt/completion fields mirror input/output for
// older consumers.
type Usage struct {
	InputTokens       int `json:"inputTokens"`
	OutputTokens      int `json:"outputTokens"`
	PromptTokens      int `json:"promptTokens"`
	CompletionTokens  int `json:"completionTokens"`
	TotalTokens       int `json:"totalTokens"`
	ReasoningTokens   int `json:"reasoningTokens"`
	CachedInputTokens int `json:"cachedInputTokens"`
}

// Normalize fills whichever of the mirrored fields the server left out and
// derives TotalTokens when it is missing.
func (u Usage) Normalize() Usage {
	if u.InputTokens == 0 {
		u.InputTokens = u.PromptTokens
	}
	if u.PromptTokens == 0 {
		u.PromptTokens = u.InputTokens
	}
	if u.OutputTokens == 0 {
		u.OutputTokens = u.CompletionTokens
	}
	if u.CompletionTokens == 0 {
		u.CompletionTokens = u.OutputTokens
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type StreamType string

const (
	StreamText   StreamType = "text"
	StreamObject StreamType = "object"
)

// ChainResponse is the output of the last provider step. StreamType decides
// which fields are meaningful: ToolCalls and Reasoning for text, Object for
// object.
type ChainResponse struct {
	StreamType StreamType `json:"streamType"`
	Text       string     `json:"text"`
	Usage      Usage      `json:"usage"`

	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	Reasoning string     `json:"reasoning,omitempty"`

	Object json.RawMessage `json:"object,omitempty"`

	DocumentLogUUID string `json:"documentLogUuid,omitempty"`
}

func (r *ChainResponse) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	type plain ChainResponse
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	switch p.StreamType {
	case StreamText, StreamObject:
	case "":
		p.StreamType = StreamText
	default:
		return fmt.Errorf("unknown stream type %q", p.StreamType)
	}
	p.Usage = p.Usage.Normalize()
	*r = ChainResponse(p)
	return nil
}

// DecodeObject unmarshals an object-stream response into v.
func (r ChainResponse) DecodeObject(v any) error {
	if r.StreamType != StreamObject {
		return fmt.Errorf("response stream type is %q, not %q", r.StreamType, StreamObject)
	}
	if len(r.Object) == 0 {
		return fmt.Errorf("response has no object")
	}
	return json.Unmarshal(r.Object, v)
}

// GenerationResponse is the final result of a run, chat or attach. Response
// is the zero value for background runs, which only report the uuid.
type GenerationResponse struct {
	UUID         string        `json:"uuid"`
	Conversation []Message     `json:"conversation"`
	Response     ChainResponse `json:"response"`
}
