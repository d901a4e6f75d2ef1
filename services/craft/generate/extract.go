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
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>`)

	// RESPONSE:<phrase> up to ICON:, a newline, '<' or another control character.
	responseRe = regexp.MustCompile(`(?i)RESPONSE:[ \t]*([^<\x00-\x1f]*?)[ \t]*(?:ICON:|[<\x00-\x1f]|$)`)

	// ICON:<glyph> up to a newline, '<' or another control character.
	iconRe = regexp.MustCompile(`(?i)ICON:[ \t]*([^<\x00-\x1f]*)`)
)

// Extraction is the candidate pulled out of generated text.
type Extraction struct {
	Phrase string
	Icon   string
}

// Extract pulls the response phrase and icon out of free-form text.
//
// Description:
//
//	Narration inside <think>...</think> is dropped first. The phrase is the
//	text after RESPONSE: and the icon the first token after ICON:. When the
//	markers are absent, a JSON object such as {"response": ..., "icon": ...}
//	is accepted, repairing minor syntax damage. As a last resort the markers
//	are searched inside the dropped narration.
//
// Outputs:
//
//	Extraction - Trimmed phrase and icon.
//	error - *ExtractionError when either field is missing.
func Extract(raw string) (Extraction, error) {
	cleaned := thinkBlockRe.ReplaceAllString(raw, "")

	best := extractMarkers(cleaned)
	if best.complete() {
		return best, nil
	}
	if ex, ok := extractJSON(cleaned); ok {
		best = best.merge(ex)
		if best.complete() {
			return best, nil
		}
	}
	if cleaned != raw {
		best = best.merge(extractMarkers(raw))
		if best.complete() {
			return best, nil
		}
	}

	var missing []string
	if best.Phrase == "" {
		missing = append(missing, "response")
	}
	if best.Icon == "" {
		missing = append(missing, "icon")
	}
	return Extraction{}, &ExtractionError{Raw: raw, Missing: missing}
}

func (e Extraction) complete() bool {
	return e.Phrase != "" && e.Icon != ""
}

func (e Extraction) merge(o Extraction) Extraction {
	if e.Phrase == "" {
		e.Phrase = o.Phrase
	}
	if e.Icon == "" {
		e.Icon = o.Icon
	}
	return e
}

func extractMarkers(text string) Extraction {
	var ex Extraction
	if m := responseRe.FindStringSubmatch(text); m != nil {
		ex.Phrase = strings.TrimSpace(m[1])
	}
	if m := iconRe.FindStringSubmatch(text); m != nil {
		ex.Icon = firstToken(m[1])
	}
	return ex
}

func extractJSON(text string) (Extraction, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return Extraction{}, false
	}
	candidate := text[start:]
	if end := strings.LastIndex(candidate, "}"); end >= 0 {
		candidate = candidate[:end+1]
	}

	var payload struct {
		Response string `json:"response"`
		Icon     string `json:"icon"`
	}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(candidate)
		if rerr != nil {
			return Extraction{}, false
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return Extraction{}, false
		}
	}
	return Extraction{
		Phrase: strings.TrimSpace(payload.Response),
		Icon:   firstToken(payload.Icon),
	}, true
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
