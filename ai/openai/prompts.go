package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/wellspring/ai"
	"github.com/poiesic/wellspring/core"
)

const analysisResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "topics": {"type": "array", "items": {"type": "string"}},
    "tone": {"type": "string"},
    "weights": {
      "type": "object",
      "properties": {
        "fire": {"type": "number", "minimum": 0, "maximum": 1},
        "water": {"type": "number", "minimum": 0, "maximum": 1},
        "earth": {"type": "number", "minimum": 0, "maximum": 1},
        "air": {"type": "number", "minimum": 0, "maximum": 1},
        "spirit": {"type": "number", "minimum": 0, "maximum": 1}
      },
      "required": ["fire", "water", "earth", "air", "spirit"],
      "additionalProperties": false
    },
    "frames": {"type": "array", "items": {"type": "string"}},
    "concepts_introduced": {"type": "array", "items": {"type": "string"}},
    "concepts_referenced": {"type": "array", "items": {"type": "string"}},
    "practices": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["summary", "topics", "tone", "weights", "frames",
               "concepts_introduced", "concepts_referenced", "practices"],
  "additionalProperties": false
}`

const analysisPromptTemplate = `Analyze the given spiritual or contemplative text and return the analysis as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- summary is one or two plain sentences.
- topics are lowercase, 1-3 words each, at most %d of them.
- tone is a single lowercase word such as "devotional", "instructional", "reflective" or "neutral".
- weights score how strongly the text expresses each dimension, from 0.0 to 1.0:
%s
- frames lists the traditions or frames of reference the text draws on. Prefer these names: %s.
- concepts_introduced are concepts the text explains or defines. concepts_referenced are concepts it
  mentions without explaining. practices are concrete practices it describes. Lowercase, at most %d each.
- Include only what is explicitly present or clearly implied by the text. Do not hallucinate.
- If a list is empty, return [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "In pranayama we draw prana through the nadis. Sit upright and breathe slowly for ten counts."
Output:
{
  "summary": "Describes pranayama as drawing prana through the nadis and gives a counted breathing exercise.",
  "topics": ["breath", "prana", "nadis"],
  "tone": "instructional",
  "weights": {"fire": 0.2, "water": 0.3, "earth": 0.6, "air": 0.5, "spirit": 0.4},
  "frames": ["yoga"],
  "concepts_introduced": ["pranayama"],
  "concepts_referenced": ["prana", "nadi"],
  "practices": ["counted breathing"]
}`

// buildSystemPrompt creates the system prompt with the dimension hints and known frames embedded.
func buildSystemPrompt(maxConcepts int) string {
	var hints strings.Builder
	for _, d := range core.Dimensions {
		fmt.Fprintf(&hints, "  - %s: %s\n", d, ai.DimensionHints[d])
	}
	return fmt.Sprintf(analysisPromptTemplate,
		analysisResponseSchema,
		maxConcepts,
		strings.TrimRight(hints.String(), "\n"),
		strings.Join(ai.KnownFrames, ", "),
		maxConcepts)
}
