// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders wordcraft CLI output with lipgloss.
package ux

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette: warm forge tones for fire, cool water for secondary text.
var (
	ColorEmber  = lipgloss.Color("#F39C12")
	ColorFlame  = lipgloss.Color("#E67E22")
	ColorWater  = lipgloss.Color("#20B9B4")
	ColorMoss   = lipgloss.Color("#2ECC71")
	ColorStone  = lipgloss.Color("#7F8C8D")
	ColorWarn   = lipgloss.Color("#F4D03F")
	ColorDanger = lipgloss.Color("#E74C3C")
)

// Styles provides the pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorEmber),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorStone),
	Success:   lipgloss.NewStyle().Foreground(ColorMoss),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarn),
	Error:     lipgloss.NewStyle().Foreground(ColorDanger),
	Highlight: lipgloss.NewStyle().Foreground(ColorWater).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorFlame).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconPlus    Icon = "+"
)

// Render returns the icon with its style.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending, IconArrow, IconPlus:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Level controls how rich the output is.
type Level string

const (
	// LevelFull uses colors, icons and boxes.
	LevelFull Level = "full"

	// LevelMinimal uses icons without boxes.
	LevelMinimal Level = "minimal"

	// LevelMachine prints plain tab-separated text for scripts.
	LevelMachine Level = "machine"
)

// ParseLevel maps a name or abbreviation to a Level. Unknown names are
// LevelFull.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return LevelMinimal
	case "machine", "quiet", "q", "plain":
		return LevelMachine
	default:
		return LevelFull
	}
}

// DetectLevel reads WORDCRAFT_OUTPUT, falling back to LevelMachine when
// stdout is not a terminal.
func DetectLevel() Level {
	if v := os.Getenv("WORDCRAFT_OUTPUT"); v != "" {
		return ParseLevel(v)
	}
	if !IsTerminal(os.Stdout) {
		return LevelMachine
	}
	return LevelFull
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
