package notes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt is sent verbatim as the system message on every incremental
// note-extraction call.
const SystemPrompt = `You are a professional meeting note-taker. Extract structured information from meeting transcripts.

IMPORTANT RULES:
1. Only extract NEW information not present in existing notes
2. Output ONLY in JSON format (no markdown, no extra text)
3. If no new information, return empty arrays
4. For action items, infer owner/deadline from context clues (e.g., "John will finish by Friday")
5. Be concise: max 1-2 sentences per bullet
6. DO NOT repeat information already in existing notes`

// buildUserPrompt embeds the accumulated notes and the newly pending
// segments so the model can see what's already captured and avoid
// repeating it.
func buildUserPrompt(existing IncrementalNotesResponse, pending []TranscriptSegment) string {
	notesJSON, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		notesJSON = []byte("{}")
	}

	return fmt.Sprintf(`EXISTING NOTES:
%s

RECENT TRANSCRIPT (last 2-3 minutes):
%s

Extract ONLY new information and output as JSON matching the schema.`, string(notesJSON), formatTranscriptSegments(pending))
}

func formatTranscriptSegments(segments []TranscriptSegment) string {
	lines := make([]string, len(segments))
	for i, s := range segments {
		lines[i] = fmt.Sprintf("[%s] %s", formatTimestamp(s.TimestampMs), s.Text)
	}
	return strings.Join(lines, "\n")
}

// formatTimestamp renders a millisecond offset as HH:MM:SS.
func formatTimestamp(ms int64) string {
	totalSecs := ms / 1000
	h := totalSecs / 3600
	m := (totalSecs % 3600) / 60
	s := totalSecs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// jsonSchema is the Ollama structured-output schema constraining the
// model's response shape.
const jsonSchema = `{
  "type": "object",
  "properties": {
    "key_points": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "topic": {"type": "string"},
          "summary": {"type": "string"},
          "timestamp": {"type": "string"}
        },
        "required": ["topic", "summary", "timestamp"]
      }
    },
    "decisions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "decision": {"type": "string"},
          "rationale": {"type": "string"},
          "timestamp": {"type": "string"}
        },
        "required": ["decision", "timestamp"]
      }
    },
    "action_items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "task": {"type": "string"},
          "owner": {"type": "string"},
          "deadline": {"type": "string"},
          "priority": {"type": "string", "enum": ["high", "medium", "low"]}
        },
        "required": ["task"]
      }
    },
    "risks": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "risk": {"type": "string"},
          "impact": {"type": "string"},
          "mitigation": {"type": "string"},
          "timestamp": {"type": "string"}
        },
        "required": ["risk", "timestamp"]
      }
    }
  }
}`
