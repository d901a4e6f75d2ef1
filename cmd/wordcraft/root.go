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
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/wordcraft/pkg/logging"
	"github.com/AleutianAI/wordcraft/pkg/ux"
	"github.com/AleutianAI/wordcraft/services/craft"
	"github.com/AleutianAI/wordcraft/services/craft/config"
	"github.com/AleutianAI/wordcraft/services/craft/lifecycle"
	"github.com/AleutianAI/wordcraft/services/craft/store"
)

// app holds the state shared by every subcommand once the root
// pre-run has loaded the configuration.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	output     string

	stdout io.Writer
	stderr io.Writer

	cfg     config.Config
	logger  *logging.Logger
	printer *ux.Printer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "wordcraft",
		Short: "Combine items into new ones and curate the recipe graph",
		Long: `wordcraft keeps a graph of craftable items. Every item besides the four
seeds (WATER, FIRE, EARTH, WIND) is produced by one or more parent pairs.
New items are generated on demand and promoted or removed by community votes.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $WORDCRAFT_CONFIG or ~/.wordcraft/wordcraft.yaml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	flags.StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	flags.StringVarP(&a.output, "output", "o", "", "output style: full, minimal or machine")

	root.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newPathsCmd(a),
		newVoteCmd(a),
		newCombineCmd(a),
		newResetCmd(a),
		newImportCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	levelName := cfg.Logging.Level
	switch {
	case a.logLevel != "":
		levelName = a.logLevel
	case cmd.Name() != "serve":
		// One-shot commands only surface problems.
		levelName = "warn"
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}

	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "wordcraft",
		JSON:    cfg.Logging.JSON,
		Writer:  a.stderr,
	})
	slog.SetDefault(a.logger.Slog())

	outLevel := ux.DetectLevel()
	if a.output != "" {
		outLevel = ux.ParseLevel(a.output)
	}
	a.printer = ux.NewPrinter(a.stdout, a.stderr, outLevel)
	return nil
}

// close releases the log file and exporter opened by setup.
func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

func (a *app) errorf(format string, args ...any) {
	if a.printer == nil {
		fmt.Fprintf(a.stderr, "wordcraft: "+format+"\n", args...)
		return
	}
	a.printer.Error(format, args...)
}

// openStore opens the configured storage without building an LLM client.
// The caller closes the returned store.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	logger := a.logger.Slog()
	backend, err := craft.OpenBackend(a.cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, backend, store.WithLogger(logger))
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("open store at %s: %w", a.cfg.Storage.Path, err)
	}
	return st, nil
}

func (a *app) voteManager(st *store.Store) *lifecycle.Manager {
	return lifecycle.NewManager(st,
		lifecycle.WithThresholds(a.cfg.Lifecycle.Thresholds()),
		lifecycle.WithLogger(a.logger.Slog()),
	)
}
