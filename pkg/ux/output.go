// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Printer writes styled output. Errors and warnings go to Err.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Level Level
}

// NewPrinter returns a Printer for out and errOut at level.
func NewPrinter(out, errOut io.Writer, level Level) *Printer {
	return &Printer{Out: out, Err: errOut, Level: level}
}

func (p *Printer) machine() bool { return p.Level == LevelMachine }

// Title prints a heading. Machine output omits it.
func (p *Printer) Title(text string) {
	if p.machine() {
		return
	}
	fmt.Fprintln(p.Out, Styles.Title.Render(text))
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	switch p.Level {
	case LevelMachine:
		fmt.Fprintf(p.Out, "OK: %s\n", text)
	case LevelMinimal:
		fmt.Fprintf(p.Out, "%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Fprintf(p.Out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if p.machine() {
		fmt.Fprintf(p.Err, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.Err, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if p.machine() {
		fmt.Fprintf(p.Err, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.Err, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints a secondary line.
func (p *Printer) Info(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if p.machine() {
		fmt.Fprintln(p.Out, text)
		return
	}
	fmt.Fprintf(p.Out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Box prints content in a rounded box, or "title: content" for machines.
func (p *Printer) Box(title, content string) {
	if p.Level != LevelFull {
		fmt.Fprintf(p.Out, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.Out, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// ItemRow is one line of an item listing.
type ItemRow struct {
	ID        string
	Name      string
	Icon      string
	Recipes   []string
	Upvotes   int
	Downvotes int
	Approved  bool
}

// Items prints a table of items.
func (p *Printer) Items(rows []ItemRow) {
	if p.machine() {
		for _, r := range rows {
			fmt.Fprintf(p.Out, "%s\t%s\t%s\t%d\t%d\t%t\t%s\n",
				r.ID, r.Name, r.Icon, r.Upvotes, r.Downvotes, r.Approved, strings.Join(r.Recipes, ";"))
		}
		return
	}

	tw := tabwriter.NewWriter(p.Out, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, Styles.Bold.Render("ID")+"\t"+Styles.Bold.Render("ITEM")+"\t"+
		Styles.Bold.Render("VOTES")+"\t"+Styles.Bold.Render("STATUS")+"\t"+Styles.Bold.Render("RECIPES"))
	for _, r := range rows {
		status := IconPending.Render() + " pending"
		if r.Approved {
			status = IconSuccess.Render() + " approved"
		}
		recipes := Styles.Muted.Render("root")
		if len(r.Recipes) > 0 {
			recipes = strings.Join(r.Recipes, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s %s\t+%s/-%s\t%s\t%s\n",
			r.ID, r.Icon, r.Name,
			strconv.Itoa(r.Upvotes), strconv.Itoa(r.Downvotes),
			status, recipes)
	}
}

// Paths prints recipe chains, one per line.
func (p *Printer) Paths(paths [][]string, truncated bool) {
	if len(paths) == 0 {
		if p.machine() {
			return
		}
		fmt.Fprintln(p.Out, Styles.Muted.Render("no path"))
		return
	}
	sep := " " + string(IconArrow) + " "
	if !p.machine() {
		sep = " " + IconArrow.Render() + " "
	}
	for _, path := range paths {
		if p.machine() {
			fmt.Fprintln(p.Out, strings.Join(path, "\t"))
			continue
		}
		fmt.Fprintf(p.Out, "%s %s\n", Styles.Muted.Render(fmt.Sprintf("%2d hops", len(path)-1)), strings.Join(path, sep))
	}
	if truncated {
		p.Warning("search stopped early; results are partial")
	}
}
