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

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Pair is an unordered pair of node ids that combine into a node.
//
// Pairs are stored as two-element arrays so the persisted form matches the
// legacy document layout ([a, b]). Two pairs are the same edge when they hold
// the same ids in either order; use Equal, never ==.
type Pair [2]string

// NewPair builds a pair from two ids.
func NewPair(a, b string) Pair {
	return Pair{a, b}
}

// Equal reports whether p and o name the same unordered edge.
func (p Pair) Equal(o Pair) bool {
	return (p[0] == o[0] && p[1] == o[1]) || (p[0] == o[1] && p[1] == o[0])
}

// Contains reports whether id is one of the pair's members.
func (p Pair) Contains(id string) bool {
	return p[0] == id || p[1] == id
}

// Canonical returns the pair with its members in lexical order.
func (p Pair) Canonical() Pair {
	if p[1] < p[0] {
		return Pair{p[1], p[0]}
	}
	return p
}

// Key returns an order-insensitive string key for the pair.
func (p Pair) Key() string {
	c := p.Canonical()
	return c[0] + "+" + c[1]
}

// Validate checks that both members are non-empty.
func (p Pair) Validate() error {
	if strings.TrimSpace(p[0]) == "" || strings.TrimSpace(p[1]) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPair, p)
	}
	return nil
}

// Node is a discovered item in the crafting graph.
//
// JSON field names follow the persisted document format so existing
// collections and clients keep working.
type Node struct {
	// ID is the primary key, derived from the display name (see DeriveID).
	ID string `json:"id"`

	// Name is the display string.
	Name string `json:"name"`

	// Icons holds glyph or image references. The first is primary.
	Icons []string `json:"icons"`

	// ParentPairs lists the recipes known to produce this node.
	// Empty means the node is a root.
	ParentPairs []Pair `json:"parentPairs"`

	// TimeCreated is set on first insert and never overwritten.
	TimeCreated time.Time `json:"timeCreated"`

	UpvoteCount   int `json:"upvoteCount"`
	DownvoteCount int `json:"downvoteCount"`

	// Approved only ever transitions from false to true.
	Approved bool `json:"approved"`
}

// IsRoot reports whether the node has no producing recipe.
func (n *Node) IsRoot() bool {
	return len(n.ParentPairs) == 0
}

// PrimaryIcon returns the first icon, or "" when there is none.
func (n *Node) PrimaryIcon() string {
	if len(n.Icons) == 0 {
		return ""
	}
	return n.Icons[0]
}

// HasPair reports whether p is already one of the node's edges.
func (n *Node) HasPair(p Pair) bool {
	for _, existing := range n.ParentPairs {
		if existing.Equal(p) {
			return true
		}
	}
	return false
}

// AddPair appends p unless an equal edge is already present.
//
// Returns true when the edge set changed.
func (n *Node) AddPair(p Pair) bool {
	if n.HasPair(p) {
		return false
	}
	n.ParentPairs = append(n.ParentPairs, p)
	return true
}

// RemovePair drops every edge equal to p.
//
// Returns true when the edge set changed.
func (n *Node) RemovePair(p Pair) bool {
	before := len(n.ParentPairs)
	n.ParentPairs = slices.DeleteFunc(n.ParentPairs, p.Equal)
	return len(n.ParentPairs) != before
}

// Clone returns a deep copy. Nil slices come back empty so the node always
// serializes with arrays rather than null.
func (n *Node) Clone() Node {
	c := *n
	c.Icons = append(make([]string, 0, len(n.Icons)), n.Icons...)
	c.ParentPairs = append(make([]Pair, 0, len(n.ParentPairs)), n.ParentPairs...)
	return c
}

// DeriveID converts a display name into its node id: upper case, with every
// run of whitespace replaced by a single hyphen.
//
// Example:
//
//	DeriveID("Melting snowman") // "MELTING-SNOWMAN"
func DeriveID(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), "-"))
}
