// Package llm holds the clients for the text-generation backends that
// invent new crafted items.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrModelNotFound indicates the backend does not have the configured model.
	ErrModelNotFound = errors.New("model not found")

	// ErrEmptyCompletion indicates the backend answered without any text.
	ErrEmptyCompletion = errors.New("empty completion")
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Completion is the text a backend produced, with what it reported about it.
type Completion struct {
	Text  string
	Model string

	// CreatedAt is the backend's timestamp, zero if it did not report one.
	CreatedAt time.Time
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (*Completion, error)
}

// ChatClient is implemented by backends that accept role-tagged messages.
type ChatClient interface {
	LLMClient
	Chat(ctx context.Context, messages []Message, params GenerationParams) (*Completion, error)
}

func float32Ptr(v float32) *float32 { return &v }
func intPtr(v int) *int             { return &v }

// FlattenChatML renders messages in ChatML framing for completion-only
// backends, leaving the assistant turn open.
func FlattenChatML(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString("<|im_start|>")
		b.WriteString(m.Role)
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString("\n<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}
