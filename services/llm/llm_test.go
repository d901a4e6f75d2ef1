package llm

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

func TestOllamaClient_Generate(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"qwen3:8b","created_at":"2025-05-04T10:11:12.5Z","response":"RESPONSE:Steam ICON:💨","done":true}`))
	}))
	defer srv.Close()

	client, err := NewOllamaClient(OllamaConfig{BaseURL: srv.URL + "/", Model: "qwen3:8b", DisableThinking: true})
	require.NoError(t, err)

	temp := float32(0.1)
	c, err := client.Generate(context.Background(), "INPUT1:Fire INPUT2:Water", GenerationParams{Temperature: &temp})
	require.NoError(t, err)

	assert.Equal(t, "RESPONSE:Steam ICON:💨", c.Text)
	assert.Equal(t, "qwen3:8b", c.Model)
	assert.True(t, c.CreatedAt.Equal(time.Date(2025, 5, 4, 10, 11, 12, 500_000_000, time.UTC)))

	assert.False(t, got.Stream)
	require.NotNil(t, got.Think)
	assert.False(t, *got.Think)
	assert.Equal(t, "INPUT1:Fire INPUT2:Water", got.Prompt)
	assert.InDelta(t, 0.1, got.Options["temperature"], 0.0001)
	assert.EqualValues(t, 20, got.Options["top_k"])
}

func TestOllamaClient_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 2)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"RESPONSE:Mist ICON:🌫️"},"done":true}`))
	}))
	defer srv.Close()

	client, err := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	c, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "craft"},
		{Role: RoleUser, Content: "INPUT1:Water INPUT2:Wind"},
	}, GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE:Mist ICON:🌫️", c.Text)
	assert.Equal(t, "m", c.Model)
	assert.True(t, c.CreatedAt.IsZero())
}

func TestOllamaClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     error
	}{
		{"model not found", http.StatusNotFound, `{"error":"model 'x' not found"}`, ErrModelNotFound},
		{"empty response", http.StatusOK, `{"response":"   ","done":true}`, ErrEmptyCompletion},
		{"server error", http.StatusInternalServerError, `boom`, nil},
		{"bad json", http.StatusOK, `{not json`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, Model: "x"})
			require.NoError(t, err)
			_, err = client.Generate(context.Background(), "p", GenerationParams{})
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestNewOllamaClient_RequiresBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	_, err := NewOllamaClient(OllamaConfig{})
	assert.Error(t, err)

	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("OLLAMA_MODEL", "")
	c, err := NewOllamaClient(OllamaConfig{})
	require.NoError(t, err)
	assert.Equal(t, defaultOllamaModel, c.Model())
}

func TestOpenAIClient_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1746353472,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"RESPONSE:Lava ICON:🌋"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL})
	require.NoError(t, err)

	c, err := client.Generate(context.Background(), "INPUT1:Fire INPUT2:Earth", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE:Lava ICON:🌋", c.Text)
	assert.Equal(t, time.Unix(1746353472, 0).UTC(), c.CreatedAt)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "p", GenerationParams{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestLocalLlamaCppClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/completion", r.URL.Path)
		var p LocalLlamaCppClientPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, 256, p.NPredict)
		_, _ = w.Write([]byte(`{"content":"RESPONSE:Sand ICON:⏳"}`))
	}))
	defer srv.Close()

	client, err := NewLocalLlamaCppClient(srv.URL, time.Second)
	require.NoError(t, err)
	c, err := client.Generate(context.Background(), "p", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE:Sand ICON:⏳", c.Text)
}

type fakeClient struct {
	calls  atomic.Int32
	prompt atomic.Value
}

func (f *fakeClient) Generate(_ context.Context, prompt string, _ GenerationParams) (*Completion, error) {
	f.calls.Add(1)
	f.prompt.Store(prompt)
	return &Completion{Text: "ok"}, nil
}

func TestThrottledClient(t *testing.T) {
	inner := &fakeClient{}
	client := NewThrottledClient(inner, 0, 0)

	_, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "S"},
		{Role: RoleUser, Content: "U"},
	}, GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "<|im_start|>system\nS\n<|im_end|>\n<|im_start|>user\nU\n<|im_end|>\n<|im_start|>assistant\n", inner.prompt.Load())
	assert.Same(t, LLMClient(inner), client.Unwrap())
}

func TestThrottledClient_WaitHonorsContext(t *testing.T) {
	inner := &fakeClient{}
	client := NewThrottledClient(inner, 0.001, 1)

	_, err := client.Generate(context.Background(), "first", GenerationParams{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Generate(ctx, "second", GenerationParams{})
	require.Error(t, err)
	assert.EqualValues(t, 1, inner.calls.Load())
	assert.False(t, errors.Is(err, ErrEmptyCompletion))
}
