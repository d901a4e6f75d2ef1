// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pathfind answers recipe-path queries over a graph snapshot.
//
// Both queries walk backward from a node through its parent pairs, where
// either ingredient of a pair may itself have further ancestry. Walks are
// depth-first, bounded by a hop limit, and protected against cycles per
// branch: an id already on the current path is not entered again, while
// sibling branches remain free to visit it.
//
// The package is pure. It reads an immutable *graph.Snapshot and holds no
// lock, so callers take a snapshot from the store and query it at leisure.
package pathfind

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
)

// Query limits.
const (
	// DefaultMaxHops is the hop bound used when none is given.
	DefaultMaxHops = 10

	// MaxHopsLimit is the largest accepted hop bound.
	MaxHopsLimit = 100

	// DefaultTrimDelta is how much longer than the shortest path a path may be.
	DefaultTrimDelta = 5

	// DefaultMaxPaths caps the raw paths collected before trimming.
	DefaultMaxPaths = 10000

	// DefaultMaxVisits caps the nodes expanded by one query.
	DefaultMaxVisits = 1_000_000

	// contextCheckInterval is how often to check context during traversal.
	contextCheckInterval = 100
)

// Options configures a query.
type Options struct {
	// MaxHops bounds the edges walked from the starting node (default 10, max 100).
	MaxHops int

	// TrimDelta is the near-shortest allowance (default 5).
	TrimDelta int

	// MaxPaths stops collection once reached and marks the result truncated.
	MaxPaths int

	// MaxVisits stops traversal once reached and marks the result truncated.
	MaxVisits int
}

// DefaultOptions returns the defaults.
func DefaultOptions() Options {
	return Options{
		MaxHops:   DefaultMaxHops,
		TrimDelta: DefaultTrimDelta,
		MaxPaths:  DefaultMaxPaths,
		MaxVisits: DefaultMaxVisits,
	}
}

// Option is a functional option for configuring queries.
type Option func(*Options)

// WithMaxHops sets the hop bound.
//
// If n <= 0, uses default (10).
// If n > 100, clamps to 100.
func WithMaxHops(n int) Option {
	return func(o *Options) {
		switch {
		case n <= 0:
			o.MaxHops = DefaultMaxHops
		case n > MaxHopsLimit:
			o.MaxHops = MaxHopsLimit
		default:
			o.MaxHops = n
		}
	}
}

// WithTrimDelta sets the near-shortest allowance. Negative values mean 0.
func WithTrimDelta(d int) Option {
	return func(o *Options) {
		o.TrimDelta = max(d, 0)
	}
}

// WithMaxPaths caps raw path collection. Values <= 0 use the default.
func WithMaxPaths(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxPaths = n
		} else {
			o.MaxPaths = DefaultMaxPaths
		}
	}
}

// WithMaxVisits caps node expansions. Values <= 0 use the default.
func WithMaxVisits(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxVisits = n
		} else {
			o.MaxVisits = DefaultMaxVisits
		}
	}
}

func applyOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Result holds the paths found by a query.
type Result struct {
	// Paths are ordered by discovery. Each is a sequence of node ids.
	Paths [][]string

	// Truncated is true if a path or visit cap was hit or the context ended.
	Truncated bool

	// Visited counts node expansions.
	Visited int

	// Duration is the query execution time.
	Duration time.Duration
}

// Found reports whether any path survived trimming.
func (r Result) Found() bool {
	return len(r.Paths) > 0
}

// ToLeafFromRoots finds recipe paths from any root down to leafID.
//
// Description:
//
//	Walks backward from leafID through parent pairs. A branch succeeds when
//	it reaches a node with no parent pairs; the path is recorded root
//	first, leaf last. Branches that exceed the hop bound, revisit an id on
//	the current path, or reach an id missing from the snapshot end without
//	a path. Identical paths are reported once, and the result is trimmed
//	to near-shortest.
//
// Inputs:
//
//	ctx - Cancellation ends the walk early with Truncated set.
//	snap - Snapshot to query. Not modified.
//	leafID - Node to explain.
//	opts - Query options.
//
// Outputs:
//
//	Result - Paths, possibly empty. An empty result is "no path", not an error.
//	error - graph.ErrNotFound if leafID is not in the snapshot.
//
// Thread Safety: Safe for concurrent use.
func ToLeafFromRoots(ctx context.Context, snap *graph.Snapshot, leafID string, opts ...Option) (Result, error) {
	if !snap.Has(leafID) {
		return Result{}, fmt.Errorf("%w: %s", graph.ErrNotFound, leafID)
	}
	w := newWalker(ctx, snap, applyOptions(opts))
	w.toRoot(leafID, nil)
	return w.result(), nil
}

// BetweenLeaves finds recipe paths from sourceID back to targetID.
//
// Description:
//
//	Same backward walk as ToLeafFromRoots starting at sourceID. A branch
//	succeeds the moment it reaches targetID, which need not be a root.
//	Paths are recorded source first, target last.
//
// Outputs:
//
//	Result - Paths, possibly empty.
//	error - graph.ErrNotFound if either id is not in the snapshot.
//
// Thread Safety: Safe for concurrent use.
func BetweenLeaves(ctx context.Context, snap *graph.Snapshot, sourceID, targetID string, opts ...Option) (Result, error) {
	for _, id := range []string{sourceID, targetID} {
		if !snap.Has(id) {
			return Result{}, fmt.Errorf("%w: %s", graph.ErrNotFound, id)
		}
	}
	w := newWalker(ctx, snap, applyOptions(opts))
	w.toTarget(sourceID, targetID, nil)
	return w.result(), nil
}

// TrimNearShortest keeps the paths no longer than the shortest plus delta.
//
// Order is preserved. The input is not modified.
func TrimNearShortest(paths [][]string, delta int) [][]string {
	if len(paths) == 0 {
		return nil
	}
	shortest := len(paths[0])
	for _, p := range paths[1:] {
		shortest = min(shortest, len(p))
	}
	limit := shortest + max(delta, 0)

	out := make([][]string, 0, len(paths))
	for _, p := range paths {
		if len(p) <= limit {
			out = append(out, p)
		}
	}
	return out
}

// walker carries the state shared by one query. Paths are threaded by
// value; nothing on the walker is undone when a branch returns.
type walker struct {
	ctx   context.Context
	snap  *graph.Snapshot
	opts  Options
	start time.Time

	paths     [][]string
	seen      map[string]struct{}
	visited   int
	truncated bool
}

func newWalker(ctx context.Context, snap *graph.Snapshot, opts Options) *walker {
	return &walker{
		ctx:   ctx,
		snap:  snap,
		opts:  opts,
		start: time.Now(),
		seen:  make(map[string]struct{}),
	}
}

// stop reports whether the walk must end, recording why.
func (w *walker) stop() bool {
	if w.truncated {
		return true
	}
	if len(w.paths) >= w.opts.MaxPaths || w.visited >= w.opts.MaxVisits {
		w.truncated = true
		return true
	}
	if w.visited%contextCheckInterval == 0 && w.ctx.Err() != nil {
		w.truncated = true
		return true
	}
	return false
}

// enter returns the extended path, or false if id may not be expanded.
func (w *walker) enter(id string, path []string) ([]string, bool) {
	if w.stop() {
		return nil, false
	}
	if len(path) > w.opts.MaxHops {
		return nil, false
	}
	if slices.Contains(path, id) {
		return nil, false
	}
	w.visited++
	return append(path[:len(path):len(path)], id), true
}

// toRoot walks from id toward roots. path holds the ids from the leaf down
// to the caller, leaf first.
func (w *walker) toRoot(id string, path []string) {
	next, ok := w.enter(id, path)
	if !ok {
		return
	}
	node, ok := w.snap.Lookup(id)
	if !ok {
		return
	}
	if node.IsRoot() {
		rooted := slices.Clone(next)
		slices.Reverse(rooted)
		w.record(rooted)
		return
	}
	for _, pair := range node.ParentPairs {
		for _, parent := range pair {
			w.toRoot(parent, next)
		}
	}
}

// toTarget walks from id toward target. path holds the ids from the source
// down to the caller, source first.
func (w *walker) toTarget(id, target string, path []string) {
	next, ok := w.enter(id, path)
	if !ok {
		return
	}
	if id == target {
		w.record(next)
		return
	}
	node, ok := w.snap.Lookup(id)
	if !ok {
		return
	}
	for _, pair := range node.ParentPairs {
		for _, parent := range pair {
			w.toTarget(parent, target, next)
		}
	}
}

func (w *walker) record(path []string) {
	key := strings.Join(path, "\x00")
	if _, dup := w.seen[key]; dup {
		return
	}
	w.seen[key] = struct{}{}
	w.paths = append(w.paths, path)
}

func (w *walker) result() Result {
	return Result{
		Paths:     TrimNearShortest(w.paths, w.opts.TrimDelta),
		Truncated: w.truncated,
		Visited:   w.visited,
		Duration:  time.Since(w.start),
	}
}
