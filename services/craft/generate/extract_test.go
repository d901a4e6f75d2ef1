// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		phrase string
		icon   string
	}{
		{"plain", "RESPONSE:Steam ICON:💨", "Steam", "💨"},
		{"spaces", "RESPONSE:  Hot Spring   ICON:  ♨️  ", "Hot Spring", "♨️"},
		{"lowercase markers", "response: Mist icon: 🌫️", "Mist", "🌫️"},
		{"newline separated", "RESPONSE: Lava\nICON: 🌋\n", "Lava", "🌋"},
		{"narration around", "Sure! Here you go.\nRESPONSE:Mud ICON:🟤\nHope that helps", "Mud", "🟤"},
		{"think block", "<think>\nFire and water... RESPONSE: Wrong ICON: ❌\n</think>\nRESPONSE: Steam ICON: 💨", "Steam", "💨"},
		{"stops at angle bracket", "RESPONSE:Cloud<|im_end|> ICON:☁️<|im_end|>", "Cloud", "☁️"},
		{"icon annotation dropped", "RESPONSE:Sand ICON:⏳ (an hourglass)", "Sand", "⏳"},
		{"json", `{"response": "Geyser", "icon": "⛲"}`, "Geyser", "⛲"},
		{"truncated json", `Here: {"response": "Geyser", "icon": "⛲",`, "Geyser", "⛲"},
		{"only inside think block", "<think>RESPONSE:Fog ICON:🌁</think>", "Fog", "🌁"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := Extract(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.phrase, ex.Phrase)
			assert.Equal(t, tt.icon, ex.Icon)
		})
	}
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		missing []string
	}{
		{"nothing", "I cannot help with that", []string{"response", "icon"}},
		{"no icon", "RESPONSE:Steam", []string{"icon"}},
		{"no phrase", "ICON:💨", []string{"response"}},
		{"empty", "", []string{"response", "icon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrExtractionFailed)

			var ee *ExtractionError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, tt.raw, ee.Raw)
			assert.Equal(t, tt.missing, ee.Missing)
		})
	}
}

func TestLimits_Validate(t *testing.T) {
	l := DefaultLimits()
	tests := []struct {
		phrase string
		want   []Violation
	}{
		{"Steam", nil},
		{"Hot Spring", nil},
		{"fire-ice-storm-cloud", nil},
		{"a very long sentence that definitely exceeds six words", []Violation{ViolationTooLong, ViolationTooManyWords}},
		{"one two three four five six seven", []Violation{ViolationTooManyWords}},
		{"fire-ice-storm-cloud-rain", []Violation{ViolationTooManyHyphens}},
		{"ok.", []Violation{ViolationPunctuation}},
		{"wait, what", []Violation{ViolationPunctuation}},
		{"Boom!", []Violation{ViolationPunctuation}},
		{"why?", []Violation{ViolationPunctuation}},
		{"ice--cream", []Violation{ViolationDoubleHyphen}},
		{"-ice", []Violation{ViolationEdgeHyphen}},
		{"ice-", []Violation{ViolationEdgeHyphen}},
		{"ééééééééééééééééééééééééééééééééééééééééééééééé", nil},
		{"éééééééééééééééééééééééééééééééééééééééééééééééééé", []Violation{ViolationTooLong}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.Validate(tt.phrase), "Validate(%q)", tt.phrase)
	}
}

func TestPromptMessages(t *testing.T) {
	msgs := PromptMessages("Fire", "Water")
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "RESPONSE:<word_or_short_phrase> ICON:<appropriate_emoji>")
	assert.Equal(t, "INPUT1:Fire INPUT2:Water", msgs[1].Content)
}
