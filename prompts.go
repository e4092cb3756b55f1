package latitude

import (
	"context"
	"net/http"
	"time"
)

// Prompt is a prompt document as stored in a project version.
type Prompt struct {
	ID              int            `json:"id"`
	UUID            string         `json:"uuid"`
	Path            string         `json:"path"`
	Content         string         `json:"content"`
	ResolvedContent string         `json:"resolvedContent,omitempty"`
	ContentHash     string         `json:"contentHash,omitempty"`
	Config          map[string]any `json:"config,omitempty"`
	Provider        string         `json:"provider,omitempty"`
}

type PromptOptions struct {
	ProjectID   int
	VersionUUID string
}

// GetPrompt fetches the prompt document at path.
func (c *Client) GetPrompt(ctx context.Context, path string, opts PromptOptions) (*Prompt, error) {
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
	var p Prompt
	url := c.routes.prompt(projectID, c.version(opts.VersionUUID), path)
	if err := c.sendJSON(ctx, "get-prompt", http.MethodGet, url, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Log is a generation recorded against a prompt outside of Run, for
// conversations executed by the caller's own provider.
type Log struct {
	ID               int            `json:"id"`
	UUID             string         `json:"uuid"`
	Source           string         `json:"source,omitempty"`
	CommitID         int            `json:"commitId,omitempty"`
	ResolvedContent  string         `json:"resolvedContent,omitempty"`
	ContentHash      string         `json:"contentHash,omitempty"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	CustomIdentifier string         `json:"customIdentifier,omitempty"`
	Duration         int            `json:"duration,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type LogOptions struct {
	ProjectID   int
	VersionUUID string

	// Response is the assistant text that answered messages.
	Response string
}

type logRequest struct {
	Path     string    `json:"path"`
	Messages []Message `json:"messages"`
	Response string    `json:"response,omitempty"`
}

// CreateLog records messages (and optionally the final response) as a log
// of the prompt at path.
func (c *Client) CreateLog(ctx context.Context, path string, messages []Message, opts LogOptions) (*Log, error) {
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
	for i, m := range messages {
		if err := m.Validate(); err != nil {
			return nil, badRequest("message %d: %v", i, err)
		}
	}

	var l Log
	url := c.routes.logs(projectID, c.version(opts.VersionUUID))
	body := logRequest{Path: path, Messages: messages, Response: opts.Response}
	if err := c.sendJSON(ctx, "create-log", http.MethodPost, url, body, &l); err != nil {
		return nil, err
	}
	return &l, nil
}
