// Package whisper wraps the whisper.cpp Go bindings behind a small
// synchronous transcription API, plus a bounded worker pool so the
// blocking CGO call never runs on a caller's own goroutine, and a model
// manager for on-demand downloads.
package whisper

import (
	"fmt"
	"runtime"
	"strings"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Segment is one recognized span of speech, with timestamps in milliseconds
// on the caller's timeline: the offset within the audio handed to
// TranscribeSync plus its baseTimeMs.
type Segment struct {
	Text    string
	StartMs int64
	EndMs   int64
}

// Engine loads one whisper.cpp model and runs it synchronously. Callers
// that need concurrency should go through Pool rather than sharing an
// Engine across goroutines.
type Engine struct {
	model    whispercpp.Model
	language string
}

// NewEngine loads the model at modelPath. language is an ISO 639-1 code,
// or empty to let whisper.cpp auto-detect per segment.
func NewEngine(modelPath, language string) (*Engine, error) {
	model, err := whispercpp.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}
	return &Engine{model: model, language: language}, nil
}

// Close releases the loaded model.
func (e *Engine) Close() error {
	if e.model == nil {
		return nil
	}
	return e.model.Close()
}

// TranscribeSync runs whisper.cpp decoding over 16kHz mono samples and
// returns the recognized segments with timestamps offset by baseTimeMs,
// so a segment at the start of this chunk lines up with the meeting
// timeline rather than the chunk's own clock.
func (e *Engine) TranscribeSync(samples []float32, baseTimeMs int64) ([]Segment, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	ctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create whisper context: %w", err)
	}
	if e.language != "" {
		if err := ctx.SetLanguage(e.language); err != nil {
			return nil, fmt.Errorf("set whisper language: %w", err)
		}
	}
	ctx.SetTranslate(false)
	ctx.SetThreads(uint(runtime.NumCPU()))

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("process audio: %w", err)
	}

	var segments []Segment
	for {
		seg, err := ctx.NextSegment()
		if err != nil {
			break
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Text:    text,
			StartMs: baseTimeMs + seg.Start.Milliseconds(),
			EndMs:   baseTimeMs + seg.End.Milliseconds(),
		})
	}
	return segments, nil
}
