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
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default candidate limits.
const (
	DefaultMaxLength  = 48
	DefaultMaxWords   = 6
	DefaultMaxHyphens = 3
)

// Violation names one rule a candidate phrase broke.
type Violation string

const (
	ViolationTooLong        Violation = "too_long"
	ViolationPunctuation    Violation = "sentence_punctuation"
	ViolationTooManyWords   Violation = "too_many_words"
	ViolationTooManyHyphens Violation = "too_many_hyphens"
	ViolationDoubleHyphen   Violation = "double_hyphen"
	ViolationEdgeHyphen     Violation = "edge_hyphen"
)

// Limits bounds what counts as an item name rather than a sentence.
type Limits struct {
	// MaxLength is the largest accepted length in characters.
	MaxLength int `yaml:"max_length" validate:"min=1"`

	// MaxWords is the largest accepted word count. Hyphens separate words.
	MaxWords int `yaml:"max_words" validate:"min=1"`

	// MaxHyphens is the largest accepted number of hyphens.
	MaxHyphens int `yaml:"max_hyphens" validate:"min=0"`
}

// DefaultLimits returns 48 characters, 6 words and 3 hyphens.
func DefaultLimits() Limits {
	return Limits{
		MaxLength:  DefaultMaxLength,
		MaxWords:   DefaultMaxWords,
		MaxHyphens: DefaultMaxHyphens,
	}
}

// Validate returns every rule phrase breaks, or nil if it is acceptable.
func (l Limits) Validate(phrase string) []Violation {
	var v []Violation
	if utf8.RuneCountInString(phrase) > l.MaxLength {
		v = append(v, ViolationTooLong)
	}
	if strings.ContainsAny(phrase, ".,!?") {
		v = append(v, ViolationPunctuation)
	}
	words := strings.FieldsFunc(phrase, func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	})
	if len(words) > l.MaxWords {
		v = append(v, ViolationTooManyWords)
	}
	if strings.Count(phrase, "-") > l.MaxHyphens {
		v = append(v, ViolationTooManyHyphens)
	}
	if strings.Contains(phrase, "--") {
		v = append(v, ViolationDoubleHyphen)
	}
	if strings.HasPrefix(phrase, "-") || strings.HasSuffix(phrase, "-") {
		v = append(v, ViolationEdgeHyphen)
	}
	return v
}
