// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package craft

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/wordcraft/services/craft/generate"
	"github.com/AleutianAI/wordcraft/services/craft/graph"
	"github.com/AleutianAI/wordcraft/services/craft/store"
)

var requestValidate = validator.New()

// =============================================================================
// Requests
// =============================================================================

// UpsertRequest is the body of POST /api/objects.
type UpsertRequest struct {
	// ID is the node id. Required.
	ID string `json:"id" validate:"required"`

	// Name is the display name. Required.
	Name string `json:"name" validate:"required"`

	// Icons replaces the icon list of an existing node when non-empty.
	Icons []string `json:"icons,omitempty"`

	// ParentPair adds one recipe edge. Optional.
	ParentPair *graph.Pair `json:"parentPair,omitempty"`

	// TimeCreated is used only when the node is new.
	TimeCreated *time.Time `json:"timeCreated,omitempty"`
}

// Validate checks required fields.
func (r *UpsertRequest) Validate() error {
	return requestValidate.Struct(r)
}

// RemoveRequest is the optional body of DELETE /api/objects/:id.
type RemoveRequest struct {
	// ParentPair selects the edge to remove. Nil removes the node.
	ParentPair *graph.Pair `json:"parentPair,omitempty"`
}

// VoteRequest is the body of PATCH /api/objects.
type VoteRequest struct {
	ID   string `json:"id" validate:"required"`
	Vote string `json:"vote" validate:"required"`
}

// Validate checks required fields. The vote value is checked by
// lifecycle.ParseVote.
func (r *VoteRequest) Validate() error {
	return requestValidate.Struct(r)
}

// CombineRequest is the body of POST /api/paths/generate.
type CombineRequest struct {
	Parent1 string `json:"parent1" validate:"required"`
	Parent2 string `json:"parent2" validate:"required"`
}

// Validate checks required fields.
func (r *CombineRequest) Validate() error {
	return requestValidate.Struct(r)
}

// LeafToLeafQuery holds the query of GET /api/paths/leaf-to-leaf.
type LeafToLeafQuery struct {
	SourceLeafID string `form:"sourceLeafId" validate:"required"`
	TargetLeafID string `form:"targetLeafId" validate:"required"`
}

// Validate checks required fields.
func (q *LeafToLeafQuery) Validate() error {
	return requestValidate.Struct(q)
}

// =============================================================================
// Responses
// =============================================================================

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Nodes   int    `json:"nodes"`
}

// SuccessResponse acknowledges a mutation.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RemoveResponse is returned by DELETE /api/objects/:id.
type RemoveResponse struct {
	Success bool `json:"success"`
	store.RemoveResult
}

// VoteResponse is returned by PATCH /api/objects.
type VoteResponse struct {
	Success       bool `json:"success"`
	UpvoteCount   int  `json:"upvoteCount"`
	DownvoteCount int  `json:"downvoteCount"`
	Approved      bool `json:"approved"`
	Deleted       bool `json:"deleted"`
}

// PathsResponse is returned by both path queries. Paths is null when no
// path exists.
type PathsResponse struct {
	Paths     [][]string `json:"paths"`
	Truncated bool       `json:"truncated,omitempty"`
}

// CombineResponse is returned by POST /api/paths/generate on success.
type CombineResponse struct {
	Success   bool   `json:"success"`
	Leaf      string `json:"leaf"`
	LeafID    string `json:"leafID"`
	Icon      string `json:"icon,omitempty"`
	FromCache bool   `json:"fromCache"`
	Created   bool   `json:"created"`
	Raw       string `json:"raw,omitempty"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	// Error is a human-readable message.
	Error string `json:"error"`

	// Code is a stable machine-readable code, e.g. NOT_FOUND.
	Code string `json:"code,omitempty"`

	// Raw carries the generator text for extraction and discard failures.
	Raw string `json:"raw,omitempty"`

	// Leaf is the rejected candidate of a discarded combination.
	Leaf string `json:"leaf,omitempty"`

	// Violations lists the broken naming rules of a discarded candidate.
	Violations []generate.Violation `json:"violations,omitempty"`
}
