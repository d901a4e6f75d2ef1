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
	"fmt"

	"github.com/AleutianAI/wordcraft/services/llm"
)

// systemPrompt steers the generator toward one short name and one glyph.
const systemPrompt = `IMPORTANT: DO NOT EXPLAIN YOURSELF. DO NOT SHOW REASONING. DO NOT THINK OUT LOUD. DO NOT ASK FOLLOW-UP QUESTIONS.
ONLY output the RESPONSE and ICON as instructed. No extra text, no thoughts, no explanations, no reasoning, no preambles.

You are the brain and the engine behind a wordcrafting game.
The goal of the user is to build complex themes and dictionary from just the base elements:
Water, Fire, Wind, Earth
You will receive two inputs formatted as: INPUT1:<text> INPUT2:<text>

Your job is to:
1. Creatively combine the two input words or phrases into a single word or a very short phrase.
2. Use dictionary, science, or culture as inspiration when possible.
3. If the inputs are complex, extract their basic meaning or concept into a word or phrase.
4. If one input is a command (e.g., cut, explode, shrink), perform the action on the other input.
5. Keep your response extremely short, just a word or a very short phrase.
Always respond in the format: RESPONSE:<word_or_short_phrase> ICON:<appropriate_emoji>

EXAMPLES:
INPUT1:Fire INPUT2:Water
RESPONSE:Steam ICON:💨

INPUT1:Water INPUT2:Wind
RESPONSE:Mist ICON:🌫️

INPUT1:Water INPUT2:Water
RESPONSE:Lake ICON:🏞️

INPUT1:Water INPUT2:Lake
RESPONSE:Sea ICON:🌊

INPUT1:Earth INPUT2:Earth
RESPONSE:Land ICON:🌍

INPUT1:Earth INPUT2:Land
RESPONSE:Mountain ICON:⛰️

INPUT1:Water INPUT2:Earth
RESPONSE:Sand ICON:⏳

INPUT1:Sun INPUT2:Flower
RESPONSE:Sunflower ICON:🌻

INPUT1:Book INPUT2:Worm
RESPONSE:Bookworm ICON:🤓

REMEMBER: NO EXPLANATION. NO REASONING. ONLY THE RESPONSE AND ICON.`

// UserPrompt frames the two ingredients.
func UserPrompt(first, second string) string {
	return fmt.Sprintf("INPUT1:%s INPUT2:%s", first, second)
}

// PromptMessages returns the system and user turns for combining first
// and second.
func PromptMessages(first, second string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: UserPrompt(first, second)},
	}
}
