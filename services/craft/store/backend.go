// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
)

// Entry is a node together with its insertion sequence.
//
// Sequences are assigned by the Store, strictly increase across the life of
// a medium, and are preserved when a node is rewritten. Backends order
// loaded nodes by them so listing order survives a restart.
type Entry struct {
	Seq  uint64     `json:"seq"`
	Node graph.Node `json:"node"`
}

// ChangeSet is everything one critical section changed.
//
// Record-oriented backends apply Reset, Put and Delete. Document-oriented
// backends rewrite Collection, which always holds the complete collection
// after the change, in listing order.
type ChangeSet struct {
	// Reset means every node not in Put must be dropped.
	Reset bool

	// Put holds inserted or rewritten nodes.
	Put []Entry

	// Delete holds ids removed by this change. Empty when Reset is set.
	Delete []string

	// Collection is the full collection after the change.
	Collection []Entry
}

// Empty reports whether the change set carries no change.
func (cs ChangeSet) Empty() bool {
	return !cs.Reset && len(cs.Put) == 0 && len(cs.Delete) == 0
}

// Backend is a durable medium for the node collection.
//
// Implementations must apply a Commit completely or not at all: a failed or
// interrupted Commit leaves the previously committed collection readable.
// The Store serializes all calls; backends need no locking of their own.
type Backend interface {
	// Load reads the committed collection ordered by sequence. initialized
	// is false when the medium has never been written.
	Load(ctx context.Context) (entries []Entry, initialized bool, err error)

	// Commit durably applies cs.
	Commit(ctx context.Context, cs ChangeSet) error

	// Close releases the medium.
	Close() error
}
