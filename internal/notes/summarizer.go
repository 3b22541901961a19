package notes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lokutor-ai/meetingd/internal/llm"
)

// Chatter is the structured-chat surface a summarizer needs. Satisfied by
// *llm.Client; narrowed so tests can inject a fake.
type Chatter interface {
	ChatWithSchema(ctx context.Context, messages []llm.ChatMessage, schema json.RawMessage, temperature float32) (string, error)
}

// OllamaSummarizer extracts incremental notes by handing the accumulated
// notes and newly pending segments to a JSON-schema-constrained chat call.
type OllamaSummarizer struct {
	chatter Chatter
}

// NewOllamaSummarizer builds a summarizer over chatter.
func NewOllamaSummarizer(chatter Chatter) *OllamaSummarizer {
	return &OllamaSummarizer{chatter: chatter}
}

// GenerateIncrementalNotes asks the LLM for only the new notes implied by
// pending, given what's already in existing. Returns an empty response
// without calling the LLM if pending is empty.
func (s *OllamaSummarizer) GenerateIncrementalNotes(ctx context.Context, existing IncrementalNotesResponse, pending []TranscriptSegment) (IncrementalNotesResponse, error) {
	if len(pending) == 0 {
		return Empty(), nil
	}

	messages := []llm.ChatMessage{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: buildUserPrompt(existing, pending)},
	}

	content, err := s.chatter.ChatWithSchema(ctx, messages, json.RawMessage(jsonSchema), 0.0)
	if err != nil {
		return IncrementalNotesResponse{}, fmt.Errorf("notes: generate incremental notes: %w", err)
	}

	var notes IncrementalNotesResponse
	if err := json.Unmarshal([]byte(content), &notes); err != nil {
		return IncrementalNotesResponse{}, fmt.Errorf("notes: parse incremental notes response: %w", err)
	}
	return notes, nil
}
