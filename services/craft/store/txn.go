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
	"fmt"
	"slices"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
)

// Txn is a copy-on-write view of the collection inside Store.Update.
//
// Reads see the transaction's own writes. Nothing a Txn does is visible to
// other callers until Update commits it. A Txn must not be used after the
// function passed to Update returns.
type Txn struct {
	base    *graph.Snapshot
	reset   bool
	dirty   map[string]graph.Node
	added   []string
	deleted map[string]struct{}
}

func newTxn(base *graph.Snapshot) *Txn {
	return &Txn{
		base:    base,
		dirty:   make(map[string]graph.Node),
		deleted: make(map[string]struct{}),
	}
}

// Get returns a copy of the node with the given id.
func (t *Txn) Get(id string) (graph.Node, bool) {
	if _, gone := t.deleted[id]; gone {
		return graph.Node{}, false
	}
	if n, ok := t.dirty[id]; ok {
		return n.Clone(), true
	}
	if t.reset {
		return graph.Node{}, false
	}
	return t.base.Get(id)
}

// Has reports whether id is present.
func (t *Txn) Has(id string) bool {
	_, ok := t.Get(id)
	return ok
}

// Put inserts n, or replaces the node with the same id in place.
func (t *Txn) Put(n graph.Node) error {
	if n.ID == "" {
		return fmt.Errorf("%w: empty id", graph.ErrInvalidID)
	}
	if !t.Has(n.ID) && !t.inBase(n.ID) {
		t.added = append(t.added, n.ID)
	}
	delete(t.deleted, n.ID)
	t.dirty[n.ID] = n.Clone()
	return nil
}

// Delete removes id. It reports whether the node was present.
func (t *Txn) Delete(id string) bool {
	if !t.Has(id) {
		return false
	}
	delete(t.dirty, id)
	t.added = slices.DeleteFunc(t.added, func(a string) bool { return a == id })
	if t.inBase(id) {
		t.deleted[id] = struct{}{}
	}
	return true
}

// Reset discards the whole collection and replaces it with nodes.
// Later duplicates of an id are ignored.
func (t *Txn) Reset(nodes []graph.Node) error {
	t.reset = true
	t.dirty = make(map[string]graph.Node, len(nodes))
	t.added = nil
	t.deleted = make(map[string]struct{})
	for _, n := range nodes {
		if t.Has(n.ID) {
			continue
		}
		if err := t.Put(n); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of nodes visible to the transaction.
func (t *Txn) Len() int {
	return len(t.ids())
}

// IDs returns every visible id in listing order.
func (t *Txn) IDs() []string {
	return t.ids()
}

func (t *Txn) inBase(id string) bool {
	return !t.reset && t.base.Has(id)
}

func (t *Txn) changed() bool {
	return t.reset || len(t.dirty) > 0 || len(t.deleted) > 0
}

func (t *Txn) ids() []string {
	var out []string
	if !t.reset {
		for _, id := range t.base.IDs() {
			if _, gone := t.deleted[id]; !gone {
				out = append(out, id)
			}
		}
	}
	return append(out, t.added...)
}

// node returns the current value of a visible id without copying.
func (t *Txn) node(id string) graph.Node {
	if n, ok := t.dirty[id]; ok {
		return n
	}
	n, _ := t.base.Lookup(id)
	return *n
}
