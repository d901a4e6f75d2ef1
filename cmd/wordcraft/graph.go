// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/wordcraft/pkg/ux"
	"github.com/AleutianAI/wordcraft/services/craft/graph"
	"github.com/AleutianAI/wordcraft/services/craft/lifecycle"
	"github.com/AleutianAI/wordcraft/services/craft/pathfind"
	"github.com/AleutianAI/wordcraft/services/craft/store"
)

func newListCmd(a *app) *cobra.Command {
	var approvedOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every item in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			var rows []ux.ItemRow
			for _, n := range st.Snapshot().Nodes() {
				if approvedOnly && !n.Approved {
					continue
				}
				rows = append(rows, itemRow(n))
			}
			a.printer.Title(fmt.Sprintf("%d items", len(rows)))
			a.printer.Items(rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&approvedOnly, "approved", false, "only show approved items")
	return cmd
}

func itemRow(n graph.Node) ux.ItemRow {
	recipes := make([]string, 0, len(n.ParentPairs))
	for _, p := range n.ParentPairs {
		recipes = append(recipes, p[0]+"+"+p[1])
	}
	return ux.ItemRow{
		ID:        n.ID,
		Name:      n.Name,
		Icon:      n.PrimaryIcon(),
		Recipes:   recipes,
		Upvotes:   n.UpvoteCount,
		Downvotes: n.DownvoteCount,
		Approved:  n.Approved,
	}
}

func newPathsCmd(a *app) *cobra.Command {
	var maxHops int
	cmd := &cobra.Command{
		Use:   "paths LEAF | paths SOURCE TARGET",
		Short: "Show recipe chains from the seeds to an item, or between two items",
		Long: `With one argument, paths lists the chains that walk from LEAF back to a
seed. With two, it lists the chains that walk from SOURCE back through its
ingredients to TARGET.
Chains much longer than the shortest one are dropped.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			opts := a.cfg.Paths.Options()
			if maxHops > 0 {
				opts = append(opts, pathfind.WithMaxHops(maxHops))
			}

			var res pathfind.Result
			if len(args) == 1 {
				res, err = pathfind.ToLeafFromRoots(cmd.Context(), st.Snapshot(), args[0], opts...)
			} else {
				res, err = pathfind.BetweenLeaves(cmd.Context(), st.Snapshot(), args[0], args[1], opts...)
			}
			if err != nil {
				return err
			}
			a.printer.Paths(res.Paths, res.Truncated)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxHops, "max-hops", 0, "longest chain to search (default from config)")
	return cmd
}

func newVoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vote ID up|down",
		Short: "Record a vote on an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := lifecycle.ParseVote(args[1])
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			out, err := a.voteManager(st).ApplyVote(cmd.Context(), strings.TrimSpace(args[0]), kind)
			if err != nil {
				return err
			}
			switch {
			case out.Deleted:
				a.printer.Warning("%s was removed after %d downvotes", out.ID, out.DownvoteCount)
			case out.Promoted:
				a.printer.Success("%s is now approved", out.ID)
			default:
				a.printer.Success("vote recorded for %s", out.ID)
			}
			a.printer.Info("votes: +%d / -%d", out.UpvoteCount, out.DownvoteCount)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every item and restore the four seeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				ok, err := ux.Confirm("Reset the item graph?",
					"Every generated item and vote is deleted. Only the seeds remain.")
				if errors.Is(err, ux.ErrNotInteractive) {
					return errors.New("refusing to reset without --yes in a non-interactive session")
				}
				if err != nil {
					return err
				}
				if !ok {
					a.printer.Info("reset cancelled")
					return nil
				}
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ResetToSeed(cmd.Context()); err != nil {
				return err
			}
			a.printer.Success("graph reset to %d seeds", st.Snapshot().Len())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: `Replace the graph with a JSON document of the form {"objects": [...]}`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := store.ReadDocument(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Replace(cmd.Context(), doc.Objects); err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			a.printer.Success("imported %d items from %s", st.Snapshot().Len(), args[0])
			return nil
		},
	}
}
