// Package translation fans a finalized transcript segment out to N target
// languages in parallel, streaming partial translations as events and
// persisting the final text once a segment's transcript row exists.
package translation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lokutor-ai/meetingd/internal/events"
	"github.com/lokutor-ai/meetingd/internal/llm"
	"github.com/lokutor-ai/meetingd/internal/logging"
)

// Translator is the streaming chat surface a pipeline needs from an LLM
// provider. Satisfied by *llm.Client; narrowed here so tests can supply a
// fake without standing up an HTTP server.
type Translator interface {
	ChatStreaming(ctx context.Context, messages []llm.ChatMessage, onChunk func(content string)) (string, error)
}

// buildSystemPrompt mirrors the original's instruction text exactly —
// changing it changes model behavior, not just a string constant.
func buildSystemPrompt(targetLang string) string {
	return fmt.Sprintf("Translate to %s. Output only the translation. No explanations. Preserve formatting.", targetLang)
}

// translateOne runs one segment's translation into one target language,
// streaming partial updates through emitter and returning the full
// translated text on success.
func translateOne(ctx context.Context, translator Translator, emitter events.Emitter, logger logging.Logger, segmentID, text, targetLang string) (string, error) {
	messages := []llm.ChatMessage{
		{Role: "system", Content: buildSystemPrompt(targetLang)},
		{Role: "user", Content: text},
	}

	var mu sync.Mutex
	var accumulated strings.Builder

	onChunk := func(chunk string) {
		mu.Lock()
		accumulated.WriteString(chunk)
		current := accumulated.String()
		mu.Unlock()

		emitter.Emit(events.Event{
			Type: events.TypeTranslationUpdate,
			Data: events.TranslationUpdate{
				SegmentID:  segmentID,
				Text:       current,
				TargetLang: targetLang,
				IsFinal:    false,
			},
		})
	}

	full, err := translator.ChatStreaming(ctx, messages, onChunk)
	if err != nil {
		logger.Warn("translation failed: segment=%s lang=%s err=%v", segmentID, targetLang, err)
		emitter.Emit(events.Event{
			Type: events.TypeTranslationError,
			Data: events.TranslationError{SegmentID: segmentID, Error: err.Error()},
		})
		return "", err
	}

	emitter.Emit(events.Event{
		Type: events.TypeTranslationUpdate,
		Data: events.TranslationUpdate{
			SegmentID:  segmentID,
			Text:       full,
			TargetLang: targetLang,
			IsFinal:    true,
		},
	})
	return full, nil
}
