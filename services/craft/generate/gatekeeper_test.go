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
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
	craftdb "github.com/AleutianAI/wordcraft/services/craft/storage/badger"
	"github.com/AleutianAI/wordcraft/services/craft/store"
	"github.com/AleutianAI/wordcraft/services/llm"
)

// scriptedProducer returns text and counts calls.
type scriptedProducer struct {
	calls atomic.Int32
	text  string
	at    time.Time
	err   error
	delay time.Duration
	seen  []string
	mu    sync.Mutex
}

func (p *scriptedProducer) Produce(ctx context.Context, first, second graph.Node) (Production, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.seen = append(p.seen, first.Name+"+"+second.Name)
	p.mu.Unlock()
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return Production{}, ctx.Err()
		}
	}
	if p.err != nil {
		return Production{}, p.err
	}
	return Production{Text: p.text, Model: "test", CreatedAt: p.at}, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	backend, err := store.OpenBadgerBackend(craftdb.InMemoryConfig())
	require.NoError(t, err)
	s, err := store.Open(context.Background(), backend)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func approve(t *testing.T, s *store.Store, id string) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(txn *store.Txn) error {
		n, ok := txn.Get(id)
		require.True(t, ok)
		n.Approved = true
		return txn.Put(n)
	}))
}

func TestCombine_AdmitsNewNode(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	p := &scriptedProducer{text: "RESPONSE:Steam ICON:💨", at: created}
	g := NewGatekeeper(s, p)

	res, err := g.Combine(context.Background(), "FIRE", "WATER")
	require.NoError(t, err)
	assert.Equal(t, StatusAdmitted, res.Status)
	assert.True(t, res.Created)
	assert.False(t, res.FromCache)
	assert.Equal(t, "STEAM", res.Node.ID)
	assert.Equal(t, "Steam", res.Phrase)
	assert.Equal(t, "💨", res.Icon)
	assert.Equal(t, "RESPONSE:Steam ICON:💨", res.Raw)
	assert.Equal(t, []string{"Fire+Water"}, p.seen)

	n, ok := s.Snapshot().Get("STEAM")
	require.True(t, ok)
	assert.False(t, n.Approved)
	assert.Zero(t, n.UpvoteCount)
	assert.True(t, n.TimeCreated.Equal(created))
	assert.Equal(t, []graph.Pair{{"FIRE", "WATER"}}, n.ParentPairs)
}

func TestCombine_CacheHitSkipsProducer(t *testing.T) {
	s := newTestStore(t)
	p := &scriptedProducer{text: "RESPONSE:Steam ICON:💨"}
	g := NewGatekeeper(s, p)
	ctx := context.Background()

	first, err := g.Combine(ctx, "FIRE", "WATER")
	require.NoError(t, err)
	approve(t, s, first.Node.ID)

	second, err := g.Combine(ctx, "WATER", "FIRE")
	require.NoError(t, err)
	third, err := g.Combine(ctx, "FIRE", "WATER")
	require.NoError(t, err)

	assert.Equal(t, StatusCacheHit, second.Status)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Node.ID, second.Node.ID)
	assert.Equal(t, first.Node.ID, third.Node.ID)
	assert.Equal(t, "💨", third.Icon)
	assert.Empty(t, third.Raw)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestCombine_UnapprovedRecipeCallsProducerAgain(t *testing.T) {
	s := newTestStore(t)
	p := &scriptedProducer{text: "RESPONSE:Steam ICON:💨"}
	g := NewGatekeeper(s, p)

	_, err := g.Combine(context.Background(), "FIRE", "WATER")
	require.NoError(t, err)
	res, err := g.Combine(context.Background(), "FIRE", "WATER")
	require.NoError(t, err)

	assert.Equal(t, StatusAdmitted, res.Status)
	assert.False(t, res.Created)
	assert.EqualValues(t, 2, p.calls.Load())
	n, _ := s.Snapshot().Get("STEAM")
	assert.Len(t, n.ParentPairs, 1)
}

func TestCombine_ExistingNodeFirstWriterWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, err := s.Upsert(ctx, store.UpsertRequest{
		ID:         "STEAM",
		Name:       "Steam",
		Icons:      []string{"♨️"},
		ParentPair: &graph.Pair{"FIRE", "WATER"},
	})
	require.NoError(t, err)

	p := &scriptedProducer{text: "RESPONSE: steam ICON: 🌫️"}
	g := NewGatekeeper(s, p)

	res, err := g.Combine(ctx, "EARTH", "FIRE")
	require.NoError(t, err)
	assert.Equal(t, StatusAdmitted, res.Status)
	assert.False(t, res.Created)
	assert.Equal(t, "Steam", res.Phrase)
	assert.Equal(t, "♨️", res.Icon)

	n, _ := s.Snapshot().Get("STEAM")
	assert.Equal(t, []string{"♨️"}, n.Icons)
	assert.ElementsMatch(t, []graph.Pair{{"FIRE", "WATER"}, {"EARTH", "FIRE"}}, n.ParentPairs)
}

func TestCombine_SeedRootNeverGainsParents(t *testing.T) {
	s := newTestStore(t)
	g := NewGatekeeper(s, &scriptedProducer{text: "RESPONSE:Water ICON:💧"})

	res, err := g.Combine(context.Background(), "WATER", "WATER")
	require.NoError(t, err)
	assert.Equal(t, StatusAdmitted, res.Status)
	assert.Equal(t, "WATER", res.Node.ID)

	water, _ := s.Snapshot().Get("WATER")
	assert.True(t, water.IsRoot())
}

func TestCombine_Discarded(t *testing.T) {
	tests := []struct {
		text string
		want Violation
	}{
		{"RESPONSE:a very long sentence that definitely exceeds six words ICON:📜", ViolationTooManyWords},
		{"RESPONSE:fire-ice-storm-cloud-rain ICON:⛈️", ViolationTooManyHyphens},
		{"RESPONSE:ok. ICON:👌", ViolationPunctuation},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s := newTestStore(t)
			g := NewGatekeeper(s, &scriptedProducer{text: tt.text})
			before := s.Snapshot()

			res, err := g.Combine(context.Background(), "FIRE", "WATER")
			require.NoError(t, err)
			assert.Equal(t, StatusDiscarded, res.Status)
			assert.Contains(t, res.Violations, tt.want)
			assert.Equal(t, tt.text, res.Raw)
			assert.Same(t, before, s.Snapshot())
		})
	}
}

func TestCombine_InvalidParent(t *testing.T) {
	s := newTestStore(t)
	p := &scriptedProducer{text: "RESPONSE:Steam ICON:💨"}
	g := NewGatekeeper(s, p)

	_, err := g.Combine(context.Background(), "FIRE", "PLASMA")
	assert.ErrorIs(t, err, ErrInvalidParent)
	assert.Zero(t, p.calls.Load())
}

func TestCombine_ExtractionFailure(t *testing.T) {
	s := newTestStore(t)
	g := NewGatekeeper(s, &scriptedProducer{text: "I'd rather not."})

	res, err := g.Combine(context.Background(), "FIRE", "WATER")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Equal(t, "I'd rather not.", res.Raw)
	assert.Equal(t, 4, s.Snapshot().Len())
}

func TestCombine_ExternalFailure(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("connection refused")
	g := NewGatekeeper(s, &scriptedProducer{err: boom})

	_, err := g.Combine(context.Background(), "FIRE", "WATER")
	assert.ErrorIs(t, err, ErrExternalCallFailed)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
}

func TestCombine_SpanRecordsOutcome(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	s := newTestStore(t)
	boom := errors.New("connection refused")
	g := NewGatekeeper(s, &scriptedProducer{err: boom}, WithTracerProvider(tp))
	_, err := g.Combine(context.Background(), "FIRE", "WATER")
	require.Error(t, err)

	ok := NewGatekeeper(s, &scriptedProducer{text: "RESPONSE:Steam ICON:💨"}, WithTracerProvider(tp))
	_, err = ok.Combine(context.Background(), "FIRE", "EARTH")
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)

	failed := spans[0]
	assert.Equal(t, "Gatekeeper.Combine", failed.Name())
	assert.Equal(t, codes.Error, failed.Status().Code)
	require.Len(t, failed.Events(), 1)
	assert.Equal(t, "exception", failed.Events()[0].Name)

	assert.NotEqual(t, codes.Error, spans[1].Status().Code)
	assert.Empty(t, spans[1].Events())
}

func TestCombine_ExternalTimeout(t *testing.T) {
	s := newTestStore(t)
	g := NewGatekeeper(s, &scriptedProducer{text: "RESPONSE:Steam ICON:💨", delay: time.Second},
		WithTimeout(20*time.Millisecond))

	_, err := g.Combine(context.Background(), "FIRE", "WATER")
	assert.ErrorIs(t, err, ErrExternalCallFailed)
	assert.True(t, IsTimeout(err))
	assert.False(t, s.Snapshot().Has("STEAM"))
}

func TestCombine_ConcurrentIdenticalRequestsShareCall(t *testing.T) {
	s := newTestStore(t)
	p := &scriptedProducer{text: "RESPONSE:Steam ICON:💨", delay: 100 * time.Millisecond}
	g := NewGatekeeper(s, p)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Result, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, b := "FIRE", "WATER"
			if i%2 == 1 {
				a, b = b, a
			}
			res, err := g.Combine(context.Background(), a, b)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, p.calls.Load())
	for _, r := range results {
		assert.Equal(t, "STEAM", r.Node.ID)
	}
	n, _ := s.Snapshot().Get("STEAM")
	assert.Len(t, n.ParentPairs, 1)
}

type statusObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (o *statusObserver) ObserveCombine(_ context.Context, status string, _ time.Duration) {
	o.mu.Lock()
	o.statuses = append(o.statuses, status)
	o.mu.Unlock()
}

func TestCombine_Observer(t *testing.T) {
	s := newTestStore(t)
	obs := &statusObserver{}
	g := NewGatekeeper(s, &scriptedProducer{text: "RESPONSE:Steam ICON:💨"}, WithObserver(obs))

	_, err := g.Combine(context.Background(), "FIRE", "WATER")
	require.NoError(t, err)
	_, err = g.Combine(context.Background(), "FIRE", "NOPE")
	require.Error(t, err)

	assert.Equal(t, []string{"admitted", "error"}, obs.statuses)
}

type chatOnlyClient struct {
	messages []llm.Message
}

func (c *chatOnlyClient) Generate(context.Context, string, llm.GenerationParams) (*llm.Completion, error) {
	return nil, errors.New("generate should not be used")
}

func (c *chatOnlyClient) Chat(_ context.Context, messages []llm.Message, _ llm.GenerationParams) (*llm.Completion, error) {
	c.messages = messages
	return &llm.Completion{Text: "RESPONSE:Mist ICON:🌫️", Model: "m"}, nil
}

type generateOnlyClient struct {
	prompt string
}

func (c *generateOnlyClient) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (*llm.Completion, error) {
	c.prompt = prompt
	return &llm.Completion{Text: "RESPONSE:Mist ICON:🌫️"}, nil
}

func TestLLMProducer(t *testing.T) {
	water := graph.Node{ID: "WATER", Name: "Water"}
	wind := graph.Node{ID: "WIND"}

	chat := &chatOnlyClient{}
	prod, err := NewLLMProducer(chat, llm.GenerationParams{}).Produce(context.Background(), water, wind)
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE:Mist ICON:🌫️", prod.Text)
	require.Len(t, chat.messages, 2)
	assert.Equal(t, "INPUT1:Water INPUT2:WIND", chat.messages[1].Content)

	gen := &generateOnlyClient{}
	_, err = NewLLMProducer(gen, llm.GenerationParams{}).Produce(context.Background(), water, wind)
	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "<|im_start|>user\nINPUT1:Water INPUT2:WIND\n<|im_end|>")
	assert.True(t, strings.HasSuffix(gen.prompt, "<|im_start|>assistant\n"))
}
