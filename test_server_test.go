package latitude

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, event EventName, data any) string {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, b)
}

func chainFrame(t *testing.T, typ ChainEventType, id string, extra map[string]any) string {
	t.Helper()
	data := map[string]any{
		"type":      typ,
		"timestamp": 1,
		"uuid":      id,
		"messages":  []any{},
	}
	for k, v := range extra {
		data[k] = v
	}
	return frame(t, EventLatitude, data)
}

func providerFrame(t *testing.T, data map[string]any) string {
	t.Helper()
	return frame(t, EventProvider, data)
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"streamType": "text",
		"text":       text,
		"usage":      map[string]any{"inputTokens": 3, "outputTokens": 2, "totalTokens": 5},
		"toolCalls":  []any{},
	}
}

// completedStream is the smallest well-formed stream answering with text.
func completedStream(t *testing.T, id, text string) string {
	t.Helper()
	return chainFrame(t, ChainStarted, id, nil) +
		chainFrame(t, ProviderStarted, id, nil) +
		providerFrame(t, map[string]any{"type": "text-delta", "textDelta": text}) +
		chainFrame(t, ProviderCompleted, id, map[string]any{"response": textResponse(text)}) +
		chainFrame(t, ChainCompleted, id, nil)
}

func erroredStream(t *testing.T, id string) string {
	t.Helper()
	return chainFrame(t, ChainStarted, id, nil) +
		chainFrame(t, ChainErrored, id, map[string]any{
			"error": map[string]any{"name": "AIRunError", "message": "provider exploded"},
		})
}

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// fakePlatform serves canned responses per path and records every request.
type fakePlatform struct {
	t      *testing.T
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	reqs   []recordedRequest
}

func newFakePlatform(t *testing.T) *fakePlatform {
	return &fakePlatform{t: t, routes: make(map[string]http.HandlerFunc)}
}

func (f *fakePlatform) handle(path string, h http.HandlerFunc) {
	f.routes[path] = h
}

func (f *fakePlatform) stream(path, body string) {
	f.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(body))
	})
}

func (f *fakePlatform) reply(path string, status int, body any) {
	f.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

func (f *fakePlatform) requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.reqs...)
}

func (f *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
	if r.Body != nil {
		// Handlers read the body again.
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))

		var body map[string]any
		if json.Unmarshal(raw, &body) == nil {
			rec.Body = body
		}
	}
	f.mu.Lock()
	f.reqs = append(f.reqs, rec)
	h, ok := f.routes[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"name":"NotFoundError","errorCode":"not_found_error","message":"no route ` + r.URL.Path + `"}`))
		return
	}
	h(w, r)
}

func newTestClient(t *testing.T, platform http.Handler, opts ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(platform)
	t.Cleanup(srv.Close)

	cfg := Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		ProjectID:  42,
		RetryDelay: time.Millisecond,
		HTTPClient: srv.Client(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg)
}

func newConversationUUID() string {
	return uuid.NewString()
}

const (
	runPath          = "/api/v3/projects/42/versions/live/documents/run"
	toolsResultsPath = "/api/v3/tools/results"
)

func conversationPath(id, action string) string {
	return "/api/v3/conversations/" + id + "/" + action
}
