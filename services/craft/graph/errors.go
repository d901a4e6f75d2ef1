// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph defines the crafting graph data model.
//
// A Node is a discovered item. Each node lists the unordered parent pairs
// (recipes) known to produce it; a node with no parent pairs is a root.
// Snapshots are immutable, id-indexed views of a whole node collection and
// are what read-only consumers such as the path finder operate on.
//
// # Thread Safety
//
// Node values are plain data and are not safe for concurrent mutation.
// A Snapshot is never modified after construction and may be shared freely
// between goroutines.
package graph

import "errors"

// Sentinel errors for graph lookups.
var (
	// ErrNotFound indicates the targeted node id is absent from the collection.
	ErrNotFound = errors.New("node not found")

	// ErrInvalidPair indicates a parent pair with an empty member.
	ErrInvalidPair = errors.New("invalid parent pair")

	// ErrInvalidID indicates an empty or malformed node id.
	ErrInvalidID = errors.New("invalid node id")
)
