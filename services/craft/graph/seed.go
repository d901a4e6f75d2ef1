// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "time"

// Seed root ids. These four are always present after a reset, always
// approved, and never gain parent pairs.
const (
	SeedWater = "WATER"
	SeedFire  = "FIRE"
	SeedEarth = "EARTH"
	SeedWind  = "WIND"
)

var seedDefs = []struct {
	id, name, icon string
}{
	{SeedWater, "Water", "💧"},
	{SeedFire, "Fire", "🔥"},
	{SeedEarth, "Earth", "🌍"},
	{SeedWind, "Wind", "💨"},
}

// SeedNodes returns the four pre-approved root nodes stamped with now.
func SeedNodes(now time.Time) []Node {
	nodes := make([]Node, 0, len(seedDefs))
	for _, d := range seedDefs {
		nodes = append(nodes, Node{
			ID:          d.id,
			Name:        d.name,
			Icons:       []string{d.icon},
			ParentPairs: []Pair{},
			TimeCreated: now.UTC(),
			Approved:    true,
		})
	}
	return nodes
}

// IsSeedID reports whether id names one of the four seed roots.
func IsSeedID(id string) bool {
	switch id {
	case SeedWater, SeedFire, SeedEarth, SeedWind:
		return true
	}
	return false
}
