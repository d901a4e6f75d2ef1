// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

// Snapshot is an immutable view of a node collection.
//
// Description:
//
//	Holds deep copies of the nodes it was built from, indexed by id and
//	kept in collection order. Nothing reachable from a Snapshot is
//	modified after NewSnapshot returns, so it is decoupled from any later
//	mutation of the store that produced it.
//
// Thread Safety: Safe for concurrent use.
type Snapshot struct {
	order []string
	nodes map[string]*Node
}

// NewSnapshot builds a snapshot from nodes, preserving their order.
//
// When two nodes share an id the first one wins.
func NewSnapshot(nodes []Node) *Snapshot {
	s := &Snapshot{
		order: make([]string, 0, len(nodes)),
		nodes: make(map[string]*Node, len(nodes)),
	}
	for i := range nodes {
		if _, dup := s.nodes[nodes[i].ID]; dup {
			continue
		}
		c := nodes[i].Clone()
		s.nodes[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
	return s
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Has reports whether id is present.
func (s *Snapshot) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.nodes[id]
	return ok
}

// Lookup returns the stored node for id without copying.
//
// The returned pointer is shared with every other reader of the snapshot
// and MUST NOT be modified. Use Get for a private copy.
func (s *Snapshot) Lookup(id string) (*Node, bool) {
	if s == nil {
		return nil, false
	}
	n, ok := s.nodes[id]
	return n, ok
}

// Get returns a deep copy of the node for id.
func (s *Snapshot) Get(id string) (Node, bool) {
	n, ok := s.Lookup(id)
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// IDs returns the node ids in collection order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Nodes returns deep copies of every node in collection order.
func (s *Snapshot) Nodes() []Node {
	if s == nil {
		return []Node{}
	}
	out := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// FindApprovedByPair returns the first approved node in collection order
// whose edge set contains p (in either order).
func (s *Snapshot) FindApprovedByPair(p Pair) (Node, bool) {
	if s == nil {
		return Node{}, false
	}
	for _, id := range s.order {
		n := s.nodes[id]
		if n.Approved && n.HasPair(p) {
			return n.Clone(), true
		}
	}
	return Node{}, false
}
