package latitude

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestClient_RetriesServerErrors(t *testing.T) {
	platform := newFakePlatform(t)
	id := newConversationUUID()
	var attempts atomic.Int32
	platform.handle(runPath, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(completedStream(t, id, "third time")))
	})

	core, logs := observer.New(zapcore.DebugLevel)
	c := newTestClient(t, platform, func(cfg *Config) { cfg.Logger = zap.New(core) })

	resp, err := c.Run(context.Background(), "p", RunOptions{Stream: true})
	require.NoError(t, err)
	assert.Equal(t, "third time", resp.Response.Text)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Len(t, logs.FilterMessage("retrying request").All(), 2)
}

func TestClient_RetriesExhausted(t *testing.T) {
	platform := newFakePlatform(t)
	platform.reply(runPath, http.StatusBadGateway, map[string]any{
		"name":      "InternalServerError",
		"errorCode": "internal_server_error",
		"message":   "upstream unavailable",
	})
	c := newTestClient(t, platform, func(cfg *Config) { cfg.MaxRetries = 2 })

	_, err := c.Run(context.Background(), "p", RunOptions{})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusBadGateway, e.Status)
	assert.Equal(t, "upstream unavailable", e.Message)
	assert.True(t, e.Retryable)
	assert.Len(t, platform.requests(), 3)
}

func TestClient_NegativeMaxRetriesDisablesRetry(t *testing.T) {
	platform := newFakePlatform(t)
	platform.reply(runPath, http.StatusInternalServerError, map[string]any{"message": "nope"})
	c := newTestClient(t, platform, func(cfg *Config) { cfg.MaxRetries = -1 })

	_, err := c.Run(context.Background(), "p", RunOptions{})
	require.Error(t, err)
	assert.Len(t, platform.requests(), 1)
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	platform := newFakePlatform(t)
	platform.handle(runPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("  forbidden for this project \n"))
	})
	c := newTestClient(t, platform)

	_, err := c.Run(context.Background(), "p", RunOptions{})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, CodeForbidden, e.Code)
	assert.Equal(t, "forbidden for this project", e.Message)
	assert.True(t, IsAuth(err))
}

func TestClient_CustomHeaders(t *testing.T) {
	platform := newFakePlatform(t)
	platform.stream(runPath, completedStream(t, newConversationUUID(), "ok"))
	c := newTestClient(t, platform, func(cfg *Config) {
		cfg.Headers = map[string]string{"X-Tenant": "acme", "Authorization": "ignored"}
	})

	_, err := c.Run(context.Background(), "p", RunOptions{Stream: true})
	require.NoError(t, err)

	h := platform.requests()[0].Header
	assert.Equal(t, "acme", h.Get("X-Tenant"))
	assert.Equal(t, "Bearer test-key", h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
}

func TestClient_RequiresAPIKey(t *testing.T) {
	platform := newFakePlatform(t)
	c := newTestClient(t, platform, func(cfg *Config) { cfg.APIKey = "" })

	_, err := c.Run(context.Background(), "p", RunOptions{})
	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.Empty(t, platform.requests())
}

func TestClient_InvalidBaseURL(t *testing.T) {
	c := New(Config{APIKey: "k", BaseURL: "gateway.example.com", ProjectID: 1})

	_, err := c.Run(context.Background(), "p", RunOptions{})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, CodeBadRequest, e.Code)
	assert.Contains(t, e.Message, "must be absolute")
}

func TestClient_InvalidBaseURLFailsEveryOperation(t *testing.T) {
	c := New(Config{APIKey: "k", BaseURL: "not a url", ProjectID: 1})
	ctx := context.Background()
	id := newConversationUUID()
	msgs := []Message{User("hi")}

	ops := map[string]func() error{
		"run": func() error {
			_, err := c.Run(ctx, "p", RunOptions{Stream: true})
			return err
		},
		"run background": func() error {
			_, err := c.Run(ctx, "p", RunOptions{Background: true})
			return err
		},
		"chat": func() error {
			_, err := c.Chat(ctx, id, msgs, ChatOptions{})
			return err
		},
		"attach": func() error {
			_, err := c.Attach(ctx, id, AttachOptions{Stream: true})
			return err
		},
		"submit tool result": func() error {
			return c.SubmitToolResult(ctx, ToolResult{ToolCallID: "call_1", Result: "ok"})
		},
		"stop": func() error {
			return c.Stop(ctx, id)
		},
		"get prompt": func() error {
			_, err := c.GetPrompt(ctx, "p", PromptOptions{})
			return err
		},
		"create log": func() error {
			_, err := c.CreateLog(ctx, "p", msgs, LogOptions{})
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = op() })
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, CodeBadRequest, e.Code)
			assert.Equal(t, http.StatusBadRequest, e.Status)
			assert.Contains(t, e.Message, "invalid client config")
		})
	}

	var got *Error
	resp, err := c.Run(ctx, "p", RunOptions{Callbacks: Callbacks{OnError: func(e *Error) { got = e }}})
	require.NoError(t, err)
	assert.Nil(t, resp)
	require.NotNil(t, got)
	assert.Equal(t, CodeBadRequest, got.Code)
}

func TestClient_Defaults(t *testing.T) {
	cfg := New(Config{APIKey: "k"}).Config()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultAPIVersion, cfg.APIVersion)
	assert.Equal(t, DefaultVersionUUID, cfg.VersionUUID)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.NotNil(t, cfg.HTTPClient)
	assert.NotNil(t, cfg.Logger)
}

func TestClient_SyncTimeout(t *testing.T) {
	platform := newFakePlatform(t)
	platform.handle(runPath, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := newTestClient(t, platform, func(cfg *Config) {
		cfg.Timeout = 50 * time.Millisecond
		cfg.MaxRetries = -1
	})

	_, err := c.Run(context.Background(), "p", RunOptions{})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestClient_SubmitToolResult(t *testing.T) {
	platform := newFakePlatform(t)
	platform.reply(toolsResultsPath, http.StatusOK, map[string]any{})
	c := newTestClient(t, platform)

	require.NoError(t, c.SubmitToolResult(context.Background(), ToolResult{ToolCallID: "call_1", Result: []int{1, 2}}))

	r := platform.requests()[0]
	assert.Equal(t, map[string]any{"toolCallId": "call_1", "result": []any{float64(1), float64(2)}, "isError": false}, r.Body)

	err := c.SubmitToolResult(context.Background(), ToolResult{})
	require.Error(t, err)
	assert.Len(t, platform.requests(), 1)
}

func TestClient_Stop(t *testing.T) {
	platform := newFakePlatform(t)
	id := newConversationUUID()
	platform.reply(conversationPath(id, "stop"), http.StatusOK, map[string]any{})
	c := newTestClient(t, platform)

	require.NoError(t, c.Stop(context.Background(), id))
	assert.Equal(t, conversationPath(id, "stop"), platform.requests()[0].Path)

	require.Error(t, c.Stop(context.Background(), "42"))
}

func TestClient_GetPrompt(t *testing.T) {
	platform := newFakePlatform(t)
	platform.reply("/api/v3/projects/42/versions/live/documents/folder/support-agent", http.StatusOK, map[string]any{
		"id":       9,
		"uuid":     "3b7d1c9a-0a55-4f4e-9d55-2b6c3f1c7e10",
		"path":     "folder/support-agent",
		"content":  "---\nprovider: openai\n---\nHelp {{ name }}",
		"config":   map[string]any{"provider": "openai", "model": "gpt-4o"},
		"provider": "openai",
	})
	c := newTestClient(t, platform)

	p, err := c.GetPrompt(context.Background(), "/folder/support-agent", PromptOptions{})
	require.NoError(t, err)
	assert.Equal(t, "folder/support-agent", p.Path)
	assert.Equal(t, "gpt-4o", p.Config["model"])
	assert.Equal(t, http.MethodGet, platform.requests()[0].Method)

	_, err = c.GetPrompt(context.Background(), "missing", PromptOptions{})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.Equal(t, CodeNotFound, e.Code)
}

func TestClient_CreateLog(t *testing.T) {
	platform := newFakePlatform(t)
	platform.reply("/api/v3/projects/42/versions/live/documents/logs", http.StatusOK, map[string]any{
		"id":        1,
		"uuid":      "0f0c2c84-6f0a-4b9c-8a55-41e6b2b1d7a3",
		"createdAt": "2026-01-02T03:04:05Z",
		"updatedAt": "2026-01-02T03:04:05Z",
	})
	c := newTestClient(t, platform)

	l, err := c.CreateLog(context.Background(), "support-agent", []Message{User("hi")}, LogOptions{Response: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 1, l.ID)
	assert.Equal(t, 2026, l.CreatedAt.Year())

	body := platform.requests()[0].Body
	assert.Equal(t, "support-agent", body["path"])
	assert.Equal(t, "hello", body["response"])
}
