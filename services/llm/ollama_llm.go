package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("wordcraft.llm.ollama")

const (
	defaultOllamaModel   = "qwen3:8b"
	defaultOllamaTimeout = 5 * time.Minute
)

// OllamaConfig configures an OllamaClient. Empty fields fall back to the
// OLLAMA_BASE_URL and OLLAMA_MODEL environment variables.
type OllamaConfig struct {
	BaseURL string
	Model   string

	// Timeout bounds one HTTP exchange. Zero means five minutes.
	Timeout time.Duration

	// DisableThinking asks reasoning models to skip their thinking phase.
	DisableThinking bool
}

type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	think      *bool
}

// Ollama API request structure
type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Think   *bool                  `json:"think,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []Message              `json:"messages"`
	Stream   bool                   `json:"stream"`
	Think    *bool                  `json:"think,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model     string  `json:"model"`
	Message   Message `json:"message"`
	CreatedAt string  `json:"created_at"`
	Done      bool    `json:"done"`
}

func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	model := cfg.Model
	if model == "" {
		model = os.Getenv("OLLAMA_MODEL")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("ollama base URL not configured and OLLAMA_BASE_URL not set")
	}
	if model == "" {
		slog.Warn("OLLAMA_MODEL not set, using default", "model", defaultOllamaModel)
		model = defaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOllamaTimeout
	}

	c := &OllamaClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
	}
	if cfg.DisableThinking {
		off := false
		c.think = &off
	}
	slog.Info("Initializing Ollama client", "base_url", c.baseURL, "default_model", model)
	return c, nil
}

// Model returns the configured model name.
func (o *OllamaClient) Model() string {
	return o.model
}

// Generate implements the LLMClient interface
func (o *OllamaClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (*Completion, error) {

	ctx, span := tracer.Start(ctx, "OllamaClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))
	slog.Debug("Generating text via Ollama", "model", o.model)

	payload := ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Think:   o.think,
		Options: ollamaOptions(params),
	}
	var resp ollamaGenerateResponse
	if err := o.post(ctx, span, "/api/generate", payload, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Response) == "" {
		return nil, fmt.Errorf("ollama generate: %w", ErrEmptyCompletion)
	}
	return o.completion(resp.Response, resp.Model, resp.CreatedAt), nil
}

// Chat sends role-tagged messages to /api/chat.
func (o *OllamaClient) Chat(ctx context.Context, messages []Message,
	params GenerationParams) (*Completion, error) {

	ctx, span := tracer.Start(ctx, "OllamaClient.Chat")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))
	span.SetAttributes(attribute.Int("llm.num_messages", len(messages)))

	payload := ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
		Think:    o.think,
		Options:  ollamaOptions(params),
	}
	var resp ollamaChatResponse
	if err := o.post(ctx, span, "/api/chat", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Message.Role != "" && resp.Message.Role != RoleAssistant {
		slog.Warn("Ollama chat response message role was not 'assistant'", "role", resp.Message.Role)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return nil, fmt.Errorf("ollama chat: %w", ErrEmptyCompletion)
	}
	return o.completion(resp.Message.Content, resp.Model, resp.CreatedAt), nil
}

func (o *OllamaClient) post(ctx context.Context, span trace.Span, path string, payload, out any) error {
	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fail(fmt.Errorf("failed to marshal request to Ollama: %w", err))
	}

	// Use NewRequestWithContext to respect context cancellation/timeout
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fail(fmt.Errorf("failed to create request to Ollama: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		slog.Error("Ollama API call failed", "error", err)
		return fail(fmt.Errorf("ollama API call failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("failed to read response body from Ollama: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			var errResp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(body, &errResp); err == nil && strings.Contains(errResp.Error, "model") && strings.Contains(errResp.Error, "not found") {
				slog.Warn("Ollama model not found", "model", o.model)
				return fail(fmt.Errorf("%w: '%s'. Please run: 'ollama pull %s'", ErrModelNotFound, o.model, o.model))
			}
		}
		slog.Error("Ollama returned an error", "status_code", resp.StatusCode, "response", string(body))
		return fail(fmt.Errorf("ollama failed with status %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		slog.Error("Failed to parse JSON response from Ollama", "error", err, "response", string(body))
		return fail(fmt.Errorf("failed to parse Ollama response: %w", err))
	}
	return nil
}

func (o *OllamaClient) completion(text, model, createdAt string) *Completion {
	c := &Completion{Text: text, Model: model}
	if c.Model == "" {
		c.Model = o.model
	}
	if createdAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			c.CreatedAt = t.UTC()
		} else {
			slog.Debug("Ignoring unparseable created_at from Ollama", "created_at", createdAt)
		}
	}
	return c
}

// ollamaOptions maps params onto Ollama's options object, filling the
// sampling defaults used for short crafting answers.
func ollamaOptions(params GenerationParams) map[string]interface{} {
	options := map[string]interface{}{
		"temperature": float32(0.7),
		"top_k":       20,
		"top_p":       float32(0.9),
		"num_predict": 256,
	}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.TopK != nil {
		options["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		options["stop"] = params.Stop
	}
	return options
}
