// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lifecycle applies community votes to crafted nodes.
//
// Upvotes promote a node to approved once they pass UpvoteAcceptThreshold.
// Downvotes delete an unapproved node once they pass DownvoteDeleteThreshold,
// and delete an approved node once they pass RevokeRatio times its upvotes.
// Roots, nodes without parent pairs, are never deleted by votes.
//
// Every vote is one store.Update, so the counter change, the threshold
// check and any deletion commit together or not at all.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
	"github.com/AleutianAI/wordcraft/services/craft/store"
)

// Default thresholds.
const (
	DefaultUpvoteAcceptThreshold   = 9
	DefaultDownvoteDeleteThreshold = 4
	DefaultRevokeRatio             = 0.75
)

// ErrInvalidVote indicates a vote kind other than up or down.
var ErrInvalidVote = errors.New("invalid vote")

// VoteKind is the direction of a vote.
type VoteKind string

const (
	VoteUp   VoteKind = "up"
	VoteDown VoteKind = "down"
)

// ParseVote accepts exactly "up" or "down". Case and surrounding space
// are significant.
func ParseVote(s string) (VoteKind, error) {
	switch VoteKind(s) {
	case VoteUp:
		return VoteUp, nil
	case VoteDown:
		return VoteDown, nil
	}
	return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidVote, s, VoteUp, VoteDown)
}

// Thresholds configures the vote rules.
type Thresholds struct {
	// UpvoteAccept approves a node when upvotes exceed it.
	UpvoteAccept int

	// DownvoteDelete deletes an unapproved node when downvotes exceed it.
	DownvoteDelete int

	// RevokeRatio deletes an approved node when downvotes exceed
	// RevokeRatio * upvotes.
	RevokeRatio float64
}

// DefaultThresholds returns 9 / 4 / 0.75.
func DefaultThresholds() Thresholds {
	return Thresholds{
		UpvoteAccept:   DefaultUpvoteAcceptThreshold,
		DownvoteDelete: DefaultDownvoteDeleteThreshold,
		RevokeRatio:    DefaultRevokeRatio,
	}
}

// Outcome is the state of a node after a vote.
type Outcome struct {
	ID            string `json:"id"`
	UpvoteCount   int    `json:"upvoteCount"`
	DownvoteCount int    `json:"downvoteCount"`
	Approved      bool   `json:"approved"`

	// Deleted is true when this vote removed the node.
	Deleted bool `json:"deleted"`

	// Promoted is true when this vote approved the node.
	Promoted bool `json:"promoted"`
}

// VoteObserver is notified after each committed vote.
type VoteObserver interface {
	ObserveVote(ctx context.Context, kind string, outcome Outcome)
}

// Manager applies votes through a store.
//
// Thread Safety: Safe for concurrent use.
type Manager struct {
	store      *store.Store
	thresholds Thresholds
	logger     *slog.Logger
	observer   VoteObserver
}

// Option configures a Manager.
type Option func(*Manager)

// WithThresholds overrides the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(m *Manager) {
		m.thresholds = t
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers a vote observer.
func WithObserver(o VoteObserver) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// NewManager creates a Manager over s.
func NewManager(s *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:      s,
		thresholds: DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Thresholds returns the active thresholds.
func (m *Manager) Thresholds() Thresholds {
	return m.thresholds
}

// ApplyVote dispatches to ApplyUpvote or ApplyDownvote.
func (m *Manager) ApplyVote(ctx context.Context, id string, kind VoteKind) (Outcome, error) {
	switch kind {
	case VoteUp:
		return m.ApplyUpvote(ctx, id)
	case VoteDown:
		return m.ApplyDownvote(ctx, id)
	}
	return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidVote, kind)
}

// ApplyUpvote increments the upvote count of id.
//
// Description:
//
//	Once the count exceeds the accept threshold the node is approved.
//	Approval is never revoked by this path.
//
// Outputs:
//
//	Outcome - Counts and approval after the vote.
//	error - graph.ErrNotFound or store.ErrStorageUnavailable.
func (m *Manager) ApplyUpvote(ctx context.Context, id string) (Outcome, error) {
	var out Outcome
	err := m.store.Update(ctx, func(txn *store.Txn) error {
		n, ok := txn.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", graph.ErrNotFound, id)
		}
		n.UpvoteCount++
		promoted := !n.Approved && n.UpvoteCount > m.thresholds.UpvoteAccept
		if promoted {
			n.Approved = true
		}
		out = outcomeOf(n, promoted, false)
		return txn.Put(n)
	})
	if err != nil {
		return Outcome{}, err
	}

	if out.Promoted {
		m.logger.Info("node approved",
			slog.String("id", id),
			slog.Int("upvotes", out.UpvoteCount))
	}
	m.observe(ctx, VoteUp, out)
	return out, nil
}

// ApplyDownvote increments the downvote count of id and deletes the node
// when a deletion rule holds.
//
// Description:
//
//	An unapproved node is deleted once downvotes exceed the delete
//	threshold. An approved node is deleted once downvotes exceed
//	RevokeRatio times its upvotes. A root is never deleted, whatever its
//	counts. Deletion removes the node unconditionally and is final.
//
// Outputs:
//
//	Outcome - Counts after the vote; Deleted reports removal.
//	error - graph.ErrNotFound or store.ErrStorageUnavailable.
func (m *Manager) ApplyDownvote(ctx context.Context, id string) (Outcome, error) {
	var out Outcome
	err := m.store.Update(ctx, func(txn *store.Txn) error {
		n, ok := txn.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", graph.ErrNotFound, id)
		}
		n.DownvoteCount++

		if m.shouldDelete(n) {
			out = outcomeOf(n, false, true)
			txn.Delete(id)
			return nil
		}
		out = outcomeOf(n, false, false)
		return txn.Put(n)
	})
	if err != nil {
		return Outcome{}, err
	}

	if out.Deleted {
		m.logger.Info("node deleted by downvotes",
			slog.String("id", id),
			slog.Int("upvotes", out.UpvoteCount),
			slog.Int("downvotes", out.DownvoteCount),
			slog.Bool("approved", out.Approved))
	}
	m.observe(ctx, VoteDown, out)
	return out, nil
}

func (m *Manager) shouldDelete(n graph.Node) bool {
	if n.IsRoot() || graph.IsSeedID(n.ID) {
		return false
	}
	if !n.Approved {
		return n.DownvoteCount > m.thresholds.DownvoteDelete
	}
	return float64(n.DownvoteCount) > m.thresholds.RevokeRatio*float64(n.UpvoteCount)
}

func (m *Manager) observe(ctx context.Context, kind VoteKind, out Outcome) {
	if m.observer != nil {
		m.observer.ObserveVote(ctx, string(kind), out)
	}
}

func outcomeOf(n graph.Node, promoted, deleted bool) Outcome {
	return Outcome{
		ID:            n.ID,
		UpvoteCount:   n.UpvoteCount,
		DownvoteCount: n.DownvoteCount,
		Approved:      n.Approved,
		Deleted:       deleted,
		Promoted:      promoted,
	}
}
