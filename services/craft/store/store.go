// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store is the authoritative node collection of the crafting graph.
//
// A Store keeps the committed collection materialized in memory as an
// immutable *graph.Snapshot and persists every change through a Backend.
// All mutation goes through Update, which is the only critical section:
//
//	lock -> copy-on-write Txn over the snapshot -> fn -> Backend.Commit -> publish -> unlock
//
// The new snapshot is published only after the backend accepted the change,
// so a failed commit leaves readers on the previous collection. Readers call
// Snapshot and then work without any lock.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
)

// CommitObserver receives one call per attempted backend commit.
type CommitObserver interface {
	ObserveCommit(ctx context.Context, op string, duration time.Duration, nodes int, err error)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for new nodes and seeding.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCommitObserver registers an observer for commit latency and outcome.
func WithCommitObserver(o CommitObserver) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// Store owns the node collection.
//
// Thread Safety: All methods are safe for concurrent use.
type Store struct {
	backend  Backend
	logger   *slog.Logger
	now      func() time.Time
	observer CommitObserver

	mu      sync.Mutex
	snap    *graph.Snapshot
	seqs    map[string]uint64
	nextSeq uint64
	closed  bool
}

// Open creates a Store over backend and loads the committed collection.
//
// Description:
//
//	If the medium has never been initialized, the four seed roots are
//	committed first. The returned Store owns backend and closes it on Close.
//
// Inputs:
//
//	ctx - Bounds the initial load.
//	backend - Storage medium. Must not be nil.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Store - Ready for use.
//	error - Wraps ErrStorageUnavailable when the medium cannot be read or seeded.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrStorageUnavailable)
	}
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		seqs:    make(map[string]uint64),
		nextSeq: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load rematerializes the collection from the backend.
//
// Callers do not normally need this; Open loads once and every commit keeps
// the in-memory collection equal to the committed one.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, ErrStoreClosed)
	}

	entries, initialized, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load: %w", ErrStorageUnavailable, err)
	}

	if !initialized {
		s.logger.Info("initializing empty graph store with seed roots")
		s.snap = graph.NewSnapshot(nil)
		s.seqs = make(map[string]uint64)
		txn := newTxn(s.snap)
		if err := txn.Reset(graph.SeedNodes(s.now())); err != nil {
			return err
		}
		return s.commitLocked(ctx, "seed", txn)
	}

	nodes := make([]graph.Node, 0, len(entries))
	seqs := make(map[string]uint64, len(entries))
	var maxSeq uint64
	for _, e := range entries {
		if _, dup := seqs[e.Node.ID]; dup {
			continue
		}
		nodes = append(nodes, e.Node)
		seqs[e.Node.ID] = e.Seq
		maxSeq = max(maxSeq, e.Seq)
	}
	s.snap = graph.NewSnapshot(nodes)
	s.seqs = seqs
	s.nextSeq = max(s.nextSeq, maxSeq+1)

	s.logger.Debug("graph store loaded", slog.Int("nodes", s.snap.Len()))
	return nil
}

// Snapshot returns the current committed collection.
//
// The result is immutable and never changes after later mutations.
func (s *Store) Snapshot() *graph.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Update runs fn as one atomic change to the collection.
//
// Description:
//
//	Holds the store lock for the whole load-mutate-persist sequence. If fn
//	returns an error, nothing is committed and that error is returned
//	unchanged. If fn made no change, nothing is committed. Otherwise the
//	change is committed through the backend and then published.
//
// Inputs:
//
//	ctx - Checked before committing and passed to the backend.
//	fn - Mutation. Must not retain txn or block on external calls.
//
// Outputs:
//
//	error - fn's error, a context error, or ErrStorageUnavailable.
func (s *Store) Update(ctx context.Context, fn func(txn *Txn) error) error {
	return s.update(ctx, "update", fn)
}

func (s *Store) update(ctx context.Context, op string, fn func(txn *Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, ErrStoreClosed)
	}

	txn := newTxn(s.snap)
	if err := fn(txn); err != nil {
		return err
	}
	if !txn.changed() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commitLocked(ctx, op, txn)
}

// commitLocked persists txn and publishes the result. Caller holds s.mu.
func (s *Store) commitLocked(ctx context.Context, op string, txn *Txn) error {
	seqs := s.seqs
	if txn.reset {
		seqs = make(map[string]uint64)
	} else {
		seqs = maps.Clone(seqs)
	}
	next := s.nextSeq

	ids := txn.ids()
	cs := ChangeSet{Reset: txn.reset}
	nodes := make([]graph.Node, 0, len(ids))
	cs.Collection = make([]Entry, 0, len(ids))
	for _, id := range ids {
		seq, ok := seqs[id]
		if !ok {
			seq = next
			next++
			seqs[id] = seq
		}
		n := txn.node(id)
		nodes = append(nodes, n)
		cs.Collection = append(cs.Collection, Entry{Seq: seq, Node: n})
		if _, dirty := txn.dirty[id]; dirty {
			cs.Put = append(cs.Put, Entry{Seq: seq, Node: n})
		}
	}
	for id := range txn.deleted {
		cs.Delete = append(cs.Delete, id)
		delete(seqs, id)
	}

	start := time.Now()
	err := s.backend.Commit(ctx, cs)
	if s.observer != nil {
		s.observer.ObserveCommit(ctx, op, time.Since(start), len(nodes), err)
	}
	if err != nil {
		s.logger.Warn("graph store commit failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: commit: %w", ErrStorageUnavailable, err)
	}

	s.snap = graph.NewSnapshot(nodes)
	s.seqs = seqs
	s.nextSeq = next

	s.logger.Debug("graph store commit",
		slog.String("op", op),
		slog.Int("put", len(cs.Put)),
		slog.Int("deleted", len(cs.Delete)),
		slog.Bool("reset", cs.Reset),
		slog.Int("nodes", len(nodes)))
	return nil
}

// Close closes the backend. Further calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.Close()
}
