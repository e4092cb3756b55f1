package latitude

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

type ContentType string

const (
	ContentText              ContentType = "text"
	ContentImage             ContentType = "image"
	ContentFile              ContentType = "file"
	ContentReasoning         ContentType = "reasoning"
	ContentRedactedReasoning ContentType = "redacted-reasoning"
	ContentToolCall          ContentType = "tool-call"
	ContentToolResult        ContentType = "tool-result"
)

// Content is one part of a message. The set of implementations is closed:
// TextContent, ImageContent, FileContent, ReasoningContent,
// RedactedReasoningContent, ToolCallContent and ToolResultContent.
type Content interface {
	ContentType() ContentType
	isContent()
}

type TextContent struct{ Text string }

// ImageContent holds a URL or base64 payload.
type ImageContent struct {
	Image    string
	MimeType string
}

type FileContent struct {
	File     string
	MimeType string
}

type ReasoningContent struct {
	ID   string
	Text string
}

type RedactedReasoningContent struct{ Data string }

type ToolCallContent struct {
	ToolCallID string
	ToolName   string
	Args       json.RawMessage
}

type ToolResultContent struct {
	ToolCallID string
	ToolName   string
	Result     json.RawMessage
	IsError    bool
}

func (TextContent) ContentType() ContentType              { return ContentText }
func (ImageContent) ContentType() ContentType             { return ContentImage }
func (FileContent) ContentType() ContentType              { return ContentFile }
func (ReasoningContent) ContentType() ContentType         { return ContentReasoning }
func (RedactedReasoningContent) ContentType() ContentType { return ContentRedactedReasoning }
func (ToolCallContent) ContentType() ContentType          { return ContentToolCall }
func (ToolResultContent) ContentType() ContentType        { return ContentToolResult }

func (TextContent) isContent()              {}
func (ImageContent) isContent()             {}
func (FileContent) isContent()              {}
func (ReasoningContent) isContent()         {}
func (RedactedReasoningContent) isContent() {}
func (ToolCallContent) isContent()          {}
func (ToolResultContent) isContent()        {}

type Message struct {
	Role    Role
	Content []Content
}

func System(text string) Message {
	return Message{Role: RoleSystem, Content: []Content{TextContent{Text: text}}}
}

func User(text string) Message {
	return Message{Role: RoleUser, Content: []Content{TextContent{Text: text}}}
}

func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Content: []Content{TextContent{Text: text}}}
}

// ToolResultMessage builds the tool message answering toolCallID.
func ToolResultMessage(toolCallID, toolName string, value any, isError bool) Message {
	raw, err := json.Marshal(value)
	if err != nil {
		raw, _ = json.Marshal(err.Error())
		isError = true
	}
	return Message{Role: RoleTool, Content: []Content{ToolResultContent{
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Result:     raw,
		IsError:    isError,
	}}}
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var b bytes.Buffer
	for _, c := range m.Content {
		if t, ok := c.(TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func (m Message) ToolCalls() []ToolCallContent {
	var out []ToolCallContent
	for _, c := range m.Content {
		if tc, ok := c.(ToolCallContent); ok {
			out = append(out, tc)
		}
	}
	return out
}

// Validate checks the role and the content kinds the role may carry.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	for _, c := range m.Content {
		switch c.(type) {
		case TextContent:
		case ToolResultContent:
			if m.Role != RoleTool {
				return fmt.Errorf("%s message cannot carry tool results", m.Role)
			}
		case ToolCallContent, ReasoningContent, RedactedReasoningContent:
			if m.Role != RoleAssistant {
				return fmt.Errorf("%s message cannot carry %s content", m.Role, c.ContentType())
			}
		case ImageContent, FileContent:
			if m.Role == RoleTool {
				return fmt.Errorf("tool message cannot carry %s content", c.ContentType())
			}
		default:
			return fmt.Errorf("unsupported content %T", c)
		}
	}
	return nil
}

type contentWire struct {
	Type       ContentType     `json:"type"`
	Text       *string         `json:"text,omitempty"`
	Image      string          `json:"image,omitempty"`
	File       string          `json:"file,omitempty"`
	MimeType   string          `json:"mimeType,omitempty"`
	ID         string          `json:"id,omitempty"`
	Data       string          `json:"data,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

func toContentWire(c Content) (contentWire, error) {
	switch v := c.(type) {
	case TextContent:
		return contentWire{Type: ContentText, Text: &v.Text}, nil
	case ImageContent:
		return contentWire{Type: ContentImage, Image: v.Image, MimeType: v.MimeType}, nil
	case FileContent:
		return contentWire{Type: ContentFile, File: v.File, MimeType: v.MimeType}, nil
	case ReasoningContent:
		return contentWire{Type: ContentReasoning, ID: v.ID, Text: &v.Text}, nil
	case RedactedReasoningContent:
		return contentWire{Type: ContentRedactedReasoning, Data: v.Data}, nil
	case ToolCallContent:
		args := v.Args
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		return contentWire{Type: ContentToolCall, ToolCallID: v.ToolCallID, ToolName: v.ToolName, Args: args}, nil
	case ToolResultContent:
		result := v.Result
		if len(result) == 0 {
			result = json.RawMessage(`null`)
		}
		return contentWire{Type: ContentToolResult, ToolCallID: v.ToolCallID, ToolName: v.ToolName, Result: result, IsError: v.IsError}, nil
	}
	return contentWire{}, fmt.Errorf("unsupported content %T", c)
}

func (w contentWire) content() (Content, error) {
	text := ""
	if w.Text != nil {
		text = *w.Text
	}
	switch w.Type {
	case ContentText:
		return TextContent{Text: text}, nil
	case ContentImage:
		return ImageContent{Image: w.Image, MimeType: w.MimeType}, nil
	case ContentFile:
		return FileContent{File: w.File, MimeType: w.MimeType}, nil
	case ContentReasoning:
		return ReasoningContent{ID: w.ID, Text: text}, nil
	case ContentRedactedReasoning:
		return RedactedReasoningContent{Data: w.Data}, nil
	case ContentToolCall:
		args := w.Args
		if len(args) == 0 {
			args = w.Input
		}
		return ToolCallContent{ToolCallID: w.ToolCallID, ToolName: w.ToolName, Args: args}, nil
	case ContentToolResult:
		return ToolResultContent{ToolCallID: w.ToolCallID, ToolName: w.ToolName, Result: w.Result, IsError: w.IsError}, nil
	}
	return nil, fmt.Errorf("unknown content type %q", w.Type)
}

type messageWire struct {
	Role      Role             `json:"role"`
	Content   json.RawMessage  `json:"content"`
	ToolCalls []legacyToolCall `json:"toolCalls,omitempty"`
}

// legacyToolCall is the older assistant-message tool call shape.
type legacyToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	parts := make([]contentWire, 0, len(m.Content))
	for _, c := range m.Content {
		w, err := toContentWire(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, w)
	}
	content, err := json.Marshal(parts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageWire{Role: m.Role, Content: content})
}

// UnmarshalJSON accepts content either as a plain string or as a list of
// typed parts.
func (m *Message) UnmarshalJSON(b []byte) error {
	var w messageWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Content = nil

	raw := bytes.TrimSpace(w.Content)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		m.Content = []Content{TextContent{Text: s}}
	default:
		var parts []contentWire
		if err := json.Unmarshal(raw, &parts); err != nil {
			return fmt.Errorf("message content: %w", err)
		}
		for _, p := range parts {
			c, err := p.content()
			if err != nil {
				return err
			}
			m.Content = append(m.Content, c)
		}
	}

	seen := make(map[string]bool)
	for _, tc := range m.ToolCalls() {
		seen[tc.ToolCallID] = true
	}
	for _, tc := range w.ToolCalls {
		if seen[tc.ID] {
			continue
		}
		m.Content = append(m.Content, ToolCallContent{ToolCallID: tc.ID, ToolName: tc.Name, Args: tc.Arguments})
	}
	return nil
}
