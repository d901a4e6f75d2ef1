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
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
)

// UpsertRequest describes an administrative insert or merge.
type UpsertRequest struct {
	// ID is required.
	ID string

	// Name is the display name. Empty keeps the existing name, or uses ID
	// for a new node.
	Name string

	// Icons replaces the icon list of an existing node when non-empty.
	Icons []string

	// ParentPair is merged into the node's edges when set.
	ParentPair *graph.Pair

	// TimeCreated is used for new nodes. Zero means now.
	TimeCreated time.Time
}

// RemoveResult reports what RemoveEdgeOrNode changed.
type RemoveResult struct {
	ID          string `json:"id"`
	EdgeRemoved bool   `json:"edgeRemoved"`
	NodeRemoved bool   `json:"nodeRemoved"`

	// RemainingPairs is the edge count left on a surviving node.
	RemainingPairs int `json:"remainingPairs"`
}

// Upsert inserts a node or merges into an existing one.
//
// Description:
//
//	A new id is inserted unapproved with zero votes and the given pair, if
//	any. An existing id gains the pair unless an equal pair (in either
//	order) is already present; its name and icons are refreshed when the
//	request supplies them. TimeCreated of an existing node never changes.
//
// Outputs:
//
//	graph.Node - The node as committed.
//	bool - True if the node was created.
//	error - graph.ErrInvalidID, graph.ErrInvalidPair, ErrSeedProtected when
//	        the pair targets a seed root, or ErrStorageUnavailable.
func (s *Store) Upsert(ctx context.Context, req UpsertRequest) (graph.Node, bool, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return graph.Node{}, false, fmt.Errorf("%w: empty id", graph.ErrInvalidID)
	}
	if req.ParentPair != nil {
		if err := req.ParentPair.Validate(); err != nil {
			return graph.Node{}, false, err
		}
		if graph.IsSeedID(id) {
			return graph.Node{}, false, fmt.Errorf("%w: %s cannot have parents", ErrSeedProtected, id)
		}
	}

	var (
		result  graph.Node
		created bool
	)
	err := s.update(ctx, "upsert", func(txn *Txn) error {
		n, exists := txn.Get(id)
		if !exists {
			created = true
			n = graph.Node{
				ID:          id,
				Name:        req.Name,
				Icons:       append([]string{}, req.Icons...),
				ParentPairs: []graph.Pair{},
				TimeCreated: req.TimeCreated,
			}
			if n.Name == "" {
				n.Name = id
			}
			if n.TimeCreated.IsZero() {
				n.TimeCreated = s.now().UTC()
			}
		} else {
			if req.Name != "" {
				n.Name = req.Name
			}
			if len(req.Icons) > 0 {
				n.Icons = append([]string{}, req.Icons...)
			}
		}

		changed := created || req.Name != "" || len(req.Icons) > 0
		if req.ParentPair != nil && n.AddPair(*req.ParentPair) {
			changed = true
		}
		result = n
		if !changed {
			return nil
		}
		return txn.Put(n)
	})
	if err != nil {
		return graph.Node{}, false, err
	}
	return result.Clone(), created, nil
}

// RemoveEdgeOrNode removes one edge of a node, or the node itself.
//
// Description:
//
//	With a pair, the equal edge (in either order) is removed. The node
//	survives while at least one edge remains and is removed entirely when
//	the removal leaves it edgeless. A node that had no edges to begin with
//	is left alone. Without a pair, the node is removed unconditionally;
//	other nodes that reference it keep their now-dangling pairs.
//
// Outputs:
//
//	RemoveResult - What changed.
//	error - graph.ErrNotFound, ErrSeedProtected, graph.ErrInvalidPair, or
//	        ErrStorageUnavailable.
func (s *Store) RemoveEdgeOrNode(ctx context.Context, id string, pair *graph.Pair) (RemoveResult, error) {
	res := RemoveResult{ID: id}
	if pair != nil {
		if err := pair.Validate(); err != nil {
			return res, err
		}
	}

	err := s.update(ctx, "remove", func(txn *Txn) error {
		n, ok := txn.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", graph.ErrNotFound, id)
		}
		if graph.IsSeedID(id) {
			return fmt.Errorf("%w: %s", ErrSeedProtected, id)
		}

		if pair == nil {
			res.NodeRemoved = txn.Delete(id)
			return nil
		}

		if n.IsRoot() || !n.RemovePair(*pair) {
			res.RemainingPairs = len(n.ParentPairs)
			return nil
		}
		res.EdgeRemoved = true
		if n.IsRoot() {
			res.NodeRemoved = txn.Delete(id)
			return nil
		}
		res.RemainingPairs = len(n.ParentPairs)
		return txn.Put(n)
	})
	if err != nil {
		return RemoveResult{ID: id}, err
	}
	return res, nil
}

// RemoveNode removes id unconditionally.
func (s *Store) RemoveNode(ctx context.Context, id string) error {
	_, err := s.RemoveEdgeOrNode(ctx, id, nil)
	return err
}

// ResetToSeed replaces the whole collection with the four seed roots.
func (s *Store) ResetToSeed(ctx context.Context) error {
	seeds := graph.SeedNodes(s.now())
	return s.update(ctx, "reset", func(txn *Txn) error {
		return txn.Reset(seeds)
	})
}

// Replace swaps the whole collection for nodes in one commit.
//
// Seed roots missing from nodes are added in front, and seed roots present
// in nodes are forced back to approved roots. Used to import documents
// written by other deployments.
func (s *Store) Replace(ctx context.Context, nodes []graph.Node) error {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("%w: empty id in imported collection", graph.ErrInvalidID)
		}
		present[n.ID] = true
	}

	all := make([]graph.Node, 0, len(nodes)+4)
	for _, seed := range graph.SeedNodes(s.now()) {
		if !present[seed.ID] {
			all = append(all, seed)
		}
	}
	for _, n := range nodes {
		n = n.Clone()
		if graph.IsSeedID(n.ID) {
			n.ParentPairs = []graph.Pair{}
			n.Approved = true
		}
		all = append(all, n)
	}

	return s.update(ctx, "replace", func(txn *Txn) error {
		return txn.Reset(all)
	})
}
