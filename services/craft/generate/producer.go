// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generate

import (
	"context"
	"time"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
	"github.com/AleutianAI/wordcraft/services/llm"
)

// Production is the raw output of one external generation call.
type Production struct {
	Text  string
	Model string

	// CreatedAt is the generator's timestamp, zero if unknown.
	CreatedAt time.Time
}

// Producer invents a candidate for combining two nodes.
//
// Implementations are called without any store lock held and must honor
// ctx cancellation.
type Producer interface {
	Produce(ctx context.Context, first, second graph.Node) (Production, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context, first, second graph.Node) (Production, error)

// Produce implements Producer.
func (f ProducerFunc) Produce(ctx context.Context, first, second graph.Node) (Production, error) {
	return f(ctx, first, second)
}

// LLMProducer asks a text-generation backend for the combination, using
// role-tagged messages when the backend supports them and ChatML framing
// otherwise.
type LLMProducer struct {
	client llm.LLMClient
	params llm.GenerationParams
}

// NewLLMProducer wraps client.
func NewLLMProducer(client llm.LLMClient, params llm.GenerationParams) *LLMProducer {
	return &LLMProducer{client: client, params: params}
}

// Produce implements Producer. Parents are described by display name.
func (p *LLMProducer) Produce(ctx context.Context, first, second graph.Node) (Production, error) {
	messages := PromptMessages(displayName(first), displayName(second))

	var (
		c   *llm.Completion
		err error
	)
	if chat, ok := p.client.(llm.ChatClient); ok {
		c, err = chat.Chat(ctx, messages, p.params)
	} else {
		c, err = p.client.Generate(ctx, llm.FlattenChatML(messages), p.params)
	}
	if err != nil {
		return Production{}, err
	}
	return Production{Text: c.Text, Model: c.Model, CreatedAt: c.CreatedAt}, nil
}

func displayName(n graph.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}
