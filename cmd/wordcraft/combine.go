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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/wordcraft/services/craft"
	"github.com/AleutianAI/wordcraft/services/craft/generate"
)

func newCombineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "combine ITEM ITEM",
		Short: "Combine two items, generating a new one if no recipe exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := craft.NewService(cmd.Context(), a.cfg, craft.WithServiceLogger(a.logger.Slog()))
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Gate.Combine(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			label := fmt.Sprintf("%s + %s", args[0], args[1])
			switch res.Status {
			case generate.StatusDiscarded:
				a.printer.Warning("discarded %q: %v", res.Phrase, res.Violations)
				return nil
			case generate.StatusCacheHit:
				a.printer.Box(label, fmt.Sprintf("%s %s (known recipe)", res.Icon, res.Node.Name))
			default:
				note := "new recipe"
				if res.Created {
					note = "new item, awaiting votes"
				}
				a.printer.Box(label, fmt.Sprintf("%s %s (%s)", res.Icon, res.Node.Name, note))
			}
			return nil
		},
	}
}
