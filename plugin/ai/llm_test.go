package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *LLMConfig
		expectError bool
	}{
		{
			name:        "openai",
			cfg:         &LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "test-key"},
			expectError: false,
		},
		{
			name:        "deepseek",
			cfg:         &LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "test-key", BaseURL: "https://api.deepseek.com"},
			expectError: false,
		},
		{
			name:        "gemini without key",
			cfg:         &LLMConfig{Provider: "gemini", Model: "gemini-2.0-flash"},
			expectError: true,
		},
		{
			name:        "unsupported provider",
			cfg:         &LLMConfig{Provider: "unsupported"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMService(context.Background(), tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		intent string
		err    bool
	}{
		{"plain", `{"intent":"QUERY"}`, "QUERY", false},
		{"fenced", "```json\n{\"intent\":\"CREATE_TASK\"}\n```", "CREATE_TASK", false},
		{"bare fence", "```\n{\"intent\":\"GREETING\"}\n```", "GREETING", false},
		{"surrounding prose", `Sure! Here it is: {"intent":"DAILY_SUMMARY"} Hope that helps.`, "DAILY_SUMMARY", false},
		{"not json", "I think you want to create a task.", "", true},
		{"truncated", `{"intent":"QUERY","params":{`, "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONObject(tt.input)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.intent, got.Get("intent").String())
		})
	}
}

type fakeBackend struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (string, error)
}

func (f *fakeBackend) chat(ctx context.Context, _ []Message, _ bool) (string, error) {
	f.calls.Add(1)
	return f.fn(ctx)
}

func TestLLMService_Timeout(t *testing.T) {
	backend := &fakeBackend{fn: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc := &llmService{backend: backend, timeout: 50 * time.Millisecond, maxRetries: 3}

	start := time.Now()
	_, err := svc.Complete(context.Background(), "hello", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestLLMService_Retry(t *testing.T) {
	backend := &fakeBackend{}
	backend.fn = func(context.Context) (string, error) {
		if backend.calls.Load() == 1 {
			return "", errors.New("temporary")
		}
		return `{"ok":true}`, nil
	}
	svc := &llmService{backend: backend, timeout: 5 * time.Second, maxRetries: 2}

	got, err := svc.CompleteJSON(context.Background(), "x", "")
	require.NoError(t, err)
	assert.True(t, got.Get("ok").Bool())
	assert.Equal(t, int32(2), backend.calls.Load())
}

func TestOpenAIBackend(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"intent\":\"GREETING\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	svc, err := NewLLMService(context.Background(), &LLMConfig{
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		MaxTokens: 64,
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)

	got, err := svc.CompleteJSON(context.Background(), "hi there", "classify")
	require.NoError(t, err)
	assert.Equal(t, "GREETING", got.Get("intent").String())

	assert.Equal(t, "gpt-4o-mini", gotReq["model"])
	messages, ok := gotReq["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	format, ok := gotReq["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestMockLLM(t *testing.T) {
	m := NewMockLLM(`{"a":1}`).Fail(errors.New("boom"))
	m.Fallback = func(prompt, _ string) (string, error) { return "echo " + prompt, nil }
	ctx := context.Background()

	got, err := m.CompleteJSON(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Get("a").Int())

	_, err = m.Complete(ctx, "p2", "")
	assert.EqualError(t, err, "boom")

	text, err := m.Complete(ctx, "p3", "")
	require.NoError(t, err)
	assert.Equal(t, "echo p3", text)

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, MockCall{Prompt: "p1", System: "s1"}, calls[0])
}
