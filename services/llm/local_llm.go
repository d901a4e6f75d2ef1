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
)

// LocalLlamaCppClient talks to a llama.cpp server's /completion endpoint.
type LocalLlamaCppClient struct {
	httpClient *http.Client
	baseURL    string
}

type LocalLlamaCppClientPayload struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type llamaCppResp struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

// NewLocalLlamaCppClient creates a client for baseURL, falling back to
// LLM_SERVICE_URL_BASE when baseURL is empty.
func NewLocalLlamaCppClient(baseURL string, timeout time.Duration) (*LocalLlamaCppClient, error) {
	if baseURL == "" {
		baseURL = os.Getenv("LLM_SERVICE_URL_BASE")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("llama.cpp base URL not configured and LLM_SERVICE_URL_BASE not set")
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &LocalLlamaCppClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Generate implements the LLMClient interface
func (l *LocalLlamaCppClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (*Completion, error) {

	completionURL := l.baseURL + "/completion"
	payload := LocalLlamaCppClientPayload{
		Prompt:      prompt,
		NPredict:    256,
		Temperature: float32Ptr(0.7),
		TopK:        intPtr(20),
		TopP:        float32Ptr(0.9),
		Stop:        params.Stop,
	}
	if params.MaxTokens != nil {
		payload.NPredict = *params.MaxTokens
	}
	if params.Temperature != nil {
		payload.Temperature = params.Temperature
	}
	if params.TopK != nil {
		payload.TopK = params.TopK
	}
	if params.TopP != nil {
		payload.TopP = params.TopP
	}

	reqBodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal the payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create llama.cpp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("Calling llama.cpp completion", "url", completionURL)
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make a request to the llm: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read the llm's response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llama.cpp failed with status %d: %s", resp.StatusCode, string(body))
	}

	var llmResponseBody llamaCppResp
	if err := json.Unmarshal(body, &llmResponseBody); err != nil {
		return nil, fmt.Errorf("failed to parse the llm response: %w", err)
	}
	if strings.TrimSpace(llmResponseBody.Content) == "" {
		return nil, fmt.Errorf("llama.cpp: %w", ErrEmptyCompletion)
	}
	return &Completion{Text: llmResponseBody.Content, Model: llmResponseBody.Model}, nil
}
