// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pathfind

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
)

func node(id string, pairs ...graph.Pair) graph.Node {
	if pairs == nil {
		pairs = []graph.Pair{}
	}
	return graph.Node{ID: id, Name: id, ParentPairs: pairs}
}

func testSnapshot(extra ...graph.Node) *graph.Snapshot {
	nodes := graph.SeedNodes(time.Now())
	nodes = append(nodes,
		node("STEAM", graph.NewPair("WATER", "FIRE")),
		node("MUD", graph.NewPair("WATER", "EARTH")),
		node("CLOUD", graph.NewPair("STEAM", "WIND")),
		node("RAIN", graph.NewPair("CLOUD", "WATER")),
	)
	return graph.NewSnapshot(append(nodes, extra...))
}

func TestTrimNearShortest(t *testing.T) {
	mk := func(n int) []string {
		p := make([]string, n)
		for i := range p {
			p[i] = fmt.Sprintf("N%d", i)
		}
		return p
	}
	paths := [][]string{mk(3), mk(3), mk(4), mk(8), mk(9)}

	trimmed := TrimNearShortest(paths, 5)
	lengths := make([]int, 0, len(trimmed))
	for _, p := range trimmed {
		lengths = append(lengths, len(p))
	}
	assert.Equal(t, []int{3, 3, 4, 8}, lengths)

	assert.Nil(t, TrimNearShortest(nil, 5))
	assert.Len(t, TrimNearShortest(paths, -1), 2)
}

func TestToLeafFromRoots(t *testing.T) {
	snap := testSnapshot()
	ctx := context.Background()

	res, err := ToLeafFromRoots(ctx, snap, "STEAM")
	require.NoError(t, err)
	assert.True(t, res.Found())
	assert.Equal(t, [][]string{
		{"WATER", "STEAM"},
		{"FIRE", "STEAM"},
	}, res.Paths)

	res, err = ToLeafFromRoots(ctx, snap, "RAIN")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"WATER", "STEAM", "CLOUD", "RAIN"},
		{"FIRE", "STEAM", "CLOUD", "RAIN"},
		{"WIND", "CLOUD", "RAIN"},
		{"WATER", "RAIN"},
	}, res.Paths)
	assert.False(t, res.Truncated)
}

func TestToLeafFromRoots_RootIsItsOwnPath(t *testing.T) {
	res, err := ToLeafFromRoots(context.Background(), testSnapshot(), "FIRE")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"FIRE"}}, res.Paths)
}

func TestToLeafFromRoots_UnknownLeaf(t *testing.T) {
	_, err := ToLeafFromRoots(context.Background(), testSnapshot(), "NOPE")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestToLeafFromRoots_DanglingReferenceIsDeadEnd(t *testing.T) {
	snap := testSnapshot(node("BRICK", graph.NewPair("GHOST", "FIRE")))

	res, err := ToLeafFromRoots(context.Background(), snap, "BRICK")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"FIRE", "BRICK"}}, res.Paths)
}

func TestToLeafFromRoots_OnlyDanglingMeansNoPath(t *testing.T) {
	snap := testSnapshot(node("BRICK", graph.NewPair("GHOST", "PHANTOM")))

	res, err := ToLeafFromRoots(context.Background(), snap, "BRICK")
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Empty(t, res.Paths)
}

func TestToLeafFromRoots_SelfLoopTerminates(t *testing.T) {
	snap := testSnapshot(
		node("LOOP", graph.NewPair("LOOP", "LOOP")),
		node("ECHO", graph.NewPair("ECHO", "FIRE"), graph.NewPair("ECHO", "ECHO")),
	)
	ctx := context.Background()

	res, err := ToLeafFromRoots(ctx, snap, "LOOP")
	require.NoError(t, err)
	assert.False(t, res.Found())

	res, err = ToLeafFromRoots(ctx, snap, "ECHO")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"FIRE", "ECHO"}}, res.Paths)
}

func TestToLeafFromRoots_MutualCycleTerminates(t *testing.T) {
	snap := testSnapshot(
		node("YIN", graph.NewPair("YANG", "WATER")),
		node("YANG", graph.NewPair("YIN", "FIRE")),
	)

	res, err := ToLeafFromRoots(context.Background(), snap, "YIN")
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]string{
		{"FIRE", "YANG", "YIN"},
		{"WATER", "YIN"},
	}, res.Paths)
}

func TestToLeafFromRoots_DuplicatePathsCollapsed(t *testing.T) {
	snap := testSnapshot(node("LAKE", graph.NewPair("WATER", "WATER")))

	res, err := ToLeafFromRoots(context.Background(), snap, "LAKE")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"WATER", "LAKE"}}, res.Paths)
}

func TestToLeafFromRoots_HopBound(t *testing.T) {
	nodes := []graph.Node{node("C0", graph.NewPair("FIRE", "FIRE"))}
	for i := 1; i <= 12; i++ {
		nodes = append(nodes, node(fmt.Sprintf("C%d", i), graph.NewPair(fmt.Sprintf("C%d", i-1), fmt.Sprintf("C%d", i-1))))
	}
	snap := testSnapshot(nodes...)
	ctx := context.Background()

	// C12 needs 13 hops to reach FIRE.
	res, err := ToLeafFromRoots(ctx, snap, "C12")
	require.NoError(t, err)
	assert.False(t, res.Found())

	res, err = ToLeafFromRoots(ctx, snap, "C12", WithMaxHops(13))
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Len(t, res.Paths[0], 14)

	res, err = ToLeafFromRoots(ctx, snap, "C9")
	require.NoError(t, err)
	assert.True(t, res.Found(), "10 hops is within the default bound")
}

func TestWithMaxHops(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultMaxHops},
		{-3, DefaultMaxHops},
		{4, 4},
		{100, 100},
		{500, MaxHopsLimit},
	}
	for _, tt := range tests {
		o := applyOptions([]Option{WithMaxHops(tt.in)})
		assert.Equal(t, tt.want, o.MaxHops, "WithMaxHops(%d)", tt.in)
	}
}

func TestToLeafFromRoots_MaxPathsTruncates(t *testing.T) {
	res, err := ToLeafFromRoots(context.Background(), testSnapshot(), "RAIN", WithMaxPaths(1))
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Paths, 1)
}

func TestToLeafFromRoots_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := ToLeafFromRoots(ctx, testSnapshot(), "RAIN")
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.False(t, res.Found())
}

func TestBetweenLeaves(t *testing.T) {
	snap := testSnapshot()
	ctx := context.Background()

	res, err := BetweenLeaves(ctx, snap, "RAIN", "STEAM")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"RAIN", "CLOUD", "STEAM"}}, res.Paths)

	res, err = BetweenLeaves(ctx, snap, "RAIN", "WATER")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"RAIN", "CLOUD", "STEAM", "WATER"},
		{"RAIN", "WATER"},
	}, res.Paths)

	res, err = BetweenLeaves(ctx, snap, "MUD", "FIRE")
	require.NoError(t, err)
	assert.False(t, res.Found())

	res, err = BetweenLeaves(ctx, snap, "CLOUD", "CLOUD")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"CLOUD"}}, res.Paths)

	_, err = BetweenLeaves(ctx, snap, "RAIN", "NOPE")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestBetweenLeaves_TrimsLongDetours(t *testing.T) {
	// A direct recipe and a seven-hop detour to the same ancestor.
	nodes := []graph.Node{node("D1", graph.NewPair("EARTH", "EARTH"))}
	for i := 2; i <= 7; i++ {
		nodes = append(nodes, node(fmt.Sprintf("D%d", i), graph.NewPair(fmt.Sprintf("D%d", i-1), fmt.Sprintf("D%d", i-1))))
	}
	nodes = append(nodes, node("TOP", graph.NewPair("EARTH", "D7")))
	snap := testSnapshot(nodes...)

	res, err := BetweenLeaves(context.Background(), snap, "TOP", "EARTH")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"TOP", "EARTH"}}, res.Paths)

	res, err = BetweenLeaves(context.Background(), snap, "TOP", "EARTH", WithTrimDelta(10))
	require.NoError(t, err)
	assert.Len(t, res.Paths, 2)
}

func TestSnapshotNotModified(t *testing.T) {
	snap := testSnapshot()
	before := snap.Nodes()

	_, err := ToLeafFromRoots(context.Background(), snap, "RAIN")
	require.NoError(t, err)
	assert.Equal(t, before, snap.Nodes())
}
