// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generate decides whether combining two nodes yields a known item,
// a new item, or nothing.
//
// A combine request is answered from the collection when an approved node
// already lists the pair as a recipe. Otherwise an external Producer invents
// a candidate, which is extracted from its free-form text, checked against
// Limits and, if acceptable, admitted to the store as an unapproved node.
//
// The external call runs outside the store lock. Concurrent requests for the
// same unordered pair share one call.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
	"github.com/AleutianAI/wordcraft/services/craft/store"
	"github.com/AleutianAI/wordcraft/services/craft/telemetry"
)

const tracerName = "wordcraft.generate"

// DefaultTimeout bounds one external generation call.
const DefaultTimeout = 60 * time.Second

// Status is the terminal state of a combine request.
type Status string

const (
	// StatusCacheHit means an approved node already had the recipe.
	StatusCacheHit Status = "cache_hit"

	// StatusAdmitted means the candidate was accepted. Result.Created tells
	// whether it was new.
	StatusAdmitted Status = "admitted"

	// StatusDiscarded means the candidate broke at least one Limits rule.
	StatusDiscarded Status = "discarded"
)

// Result describes the outcome of Combine.
type Result struct {
	Status Status

	// Node is the served or admitted node. Zero when discarded.
	Node graph.Node

	// Phrase and Icon are what the caller should display. For a discarded
	// candidate they hold the rejected text.
	Phrase string
	Icon   string

	FromCache bool
	Created   bool

	// Raw is the generator's text. Empty for cache hits.
	Raw string

	// Violations lists the broken rules of a discarded candidate.
	Violations []Violation
}

// Observer is notified once per finished Combine.
type Observer interface {
	ObserveCombine(ctx context.Context, status string, duration time.Duration)
}

// Option configures a Gatekeeper.
type Option func(*Gatekeeper)

// WithLimits overrides DefaultLimits.
func WithLimits(l Limits) Option {
	return func(g *Gatekeeper) {
		g.limits = l
	}
}

// WithTimeout bounds each external call. Non-positive values use DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gatekeeper) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gatekeeper) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the time source for nodes without a producer timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *Gatekeeper) {
		if now != nil {
			g.now = now
		}
	}
}

// WithObserver registers a combine observer.
func WithObserver(o Observer) Option {
	return func(g *Gatekeeper) {
		g.observer = o
	}
}

// WithTracerProvider sets the provider for Combine spans. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gatekeeper) {
		if tp != nil {
			g.tracer = tp.Tracer(tracerName)
		}
	}
}

// Gatekeeper arbitrates the creation of new nodes.
//
// Thread Safety: Safe for concurrent use.
type Gatekeeper struct {
	store    *store.Store
	producer Producer
	limits   Limits
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
	tracer   trace.Tracer

	flight singleflight.Group
}

// NewGatekeeper creates a Gatekeeper admitting into s and asking producer
// for new candidates.
func NewGatekeeper(s *store.Store, producer Producer, opts ...Option) *Gatekeeper {
	g := &Gatekeeper{
		store:    s,
		producer: producer,
		limits:   DefaultLimits(),
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Limits returns the active candidate limits.
func (g *Gatekeeper) Limits() Limits {
	return g.limits
}

// Combine resolves what combining parent1 and parent2 produces.
//
// Description:
//
//	 1. Both ids must be in the collection.
//	 2. An approved node listing the unordered pair is returned as a cache
//	    hit without any external call.
//	 3. Otherwise the producer is called, outside the store lock and bounded
//	    by the timeout. Identical concurrent requests share one call.
//	 4. The phrase and icon are extracted from the produced text.
//	 5. A phrase breaking any Limits rule is discarded without mutation.
//	 6. An acceptable phrase is admitted in one store update. An existing
//	    node keeps its name and icons and gains the pair as a recipe,
//	    unless it is a seed root. A new node is inserted unapproved.
//
// Outputs:
//
//	Result - Status CacheHit, Admitted, or Discarded.
//	error - ErrInvalidParent, ErrExternalCallFailed (wrapping the cause,
//	        including context.DeadlineExceeded on timeout), an
//	        *ExtractionError, or store.ErrStorageUnavailable.
//
// Thread Safety: Safe for concurrent use.
func (g *Gatekeeper) Combine(ctx context.Context, parent1, parent2 string) (res Result, err error) {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "Gatekeeper.Combine",
		trace.WithAttributes(
			attribute.String("craft.parent1", parent1),
			attribute.String("craft.parent2", parent2),
		))
	defer func() {
		status := string(res.Status)
		if err != nil {
			status = "error"
			telemetry.RecordError(span, err)
		}
		span.SetAttributes(attribute.String("craft.status", status))
		span.End()
		if g.observer != nil {
			g.observer.ObserveCombine(ctx, status, time.Since(start))
		}
	}()

	parent1, parent2 = strings.TrimSpace(parent1), strings.TrimSpace(parent2)
	snap := g.store.Snapshot()
	first, ok1 := snap.Get(parent1)
	second, ok2 := snap.Get(parent2)
	if !ok1 || !ok2 {
		return Result{}, fmt.Errorf("%w: parent1 and parent2 must be existing ids (got %q, %q)",
			ErrInvalidParent, parent1, parent2)
	}

	pair := graph.NewPair(parent1, parent2)
	if hit, ok := snap.FindApprovedByPair(pair); ok {
		return Result{
			Status:    StatusCacheHit,
			Node:      hit,
			Phrase:    hit.Name,
			Icon:      hit.PrimaryIcon(),
			FromCache: true,
		}, nil
	}

	prod, err := g.produce(ctx, pair, first, second)
	if err != nil {
		return Result{}, err
	}

	ex, err := Extract(prod.Text)
	if err != nil {
		g.logger.Warn("generated text could not be parsed",
			slog.String("pair", pair.Key()),
			slog.String("raw", prod.Text))
		return Result{Raw: prod.Text}, err
	}

	if violations := g.limits.Validate(ex.Phrase); len(violations) > 0 {
		g.logger.Info("generated candidate discarded",
			slog.String("pair", pair.Key()),
			slog.String("phrase", ex.Phrase),
			slog.Any("violations", violations))
		return Result{
			Status:     StatusDiscarded,
			Phrase:     ex.Phrase,
			Icon:       ex.Icon,
			Raw:        prod.Text,
			Violations: violations,
		}, nil
	}

	node, created, err := g.admit(ctx, pair, ex, prod.CreatedAt)
	if err != nil {
		return Result{Raw: prod.Text}, err
	}
	if created {
		g.logger.Info("new node admitted",
			slog.String("id", node.ID),
			slog.String("pair", pair.Key()),
			slog.String("model", prod.Model))
	}
	return Result{
		Status:  StatusAdmitted,
		Node:    node,
		Phrase:  node.Name,
		Icon:    node.PrimaryIcon(),
		Created: created,
		Raw:     prod.Text,
	}, nil
}

// produce runs the external call, sharing it between identical concurrent
// requests. The shared call is detached from any single caller's
// cancellation; each caller still stops waiting when its own ctx ends.
func (g *Gatekeeper) produce(ctx context.Context, pair graph.Pair, first, second graph.Node) (Production, error) {
	ch := g.flight.DoChan(pair.Key(), func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return g.producer.Produce(callCtx, first, second)
	})

	select {
	case <-ctx.Done():
		return Production{}, fmt.Errorf("%w: %w", ErrExternalCallFailed, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return Production{}, fmt.Errorf("%w: %w", ErrExternalCallFailed, r.Err)
		}
		if r.Shared {
			g.logger.Debug("shared in-flight generation call", slog.String("pair", pair.Key()))
		}
		return r.Val.(Production), nil
	}
}

func (g *Gatekeeper) admit(ctx context.Context, pair graph.Pair, ex Extraction, producedAt time.Time) (graph.Node, bool, error) {
	id := graph.DeriveID(ex.Phrase)
	if id == "" {
		return graph.Node{}, false, &ExtractionError{Raw: ex.Phrase, Missing: []string{"response"}}
	}

	var (
		node    graph.Node
		created bool
	)
	err := g.store.Update(ctx, func(txn *store.Txn) error {
		existing, ok := txn.Get(id)
		if ok {
			changed := !graph.IsSeedID(id) && existing.AddPair(pair)
			node = existing
			if !changed {
				return nil
			}
			return txn.Put(existing)
		}

		created = true
		ts := producedAt
		if ts.IsZero() {
			ts = g.now()
		}
		node = graph.Node{
			ID:          id,
			Name:        ex.Phrase,
			Icons:       []string{ex.Icon},
			ParentPairs: []graph.Pair{pair},
			TimeCreated: ts.UTC(),
		}
		return txn.Put(node)
	})
	if err != nil {
		return graph.Node{}, false, err
	}
	return node, created, nil
}

// IsTimeout reports whether err is an external call that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrExternalCallFailed) && errors.Is(err, context.DeadlineExceeded)
}
