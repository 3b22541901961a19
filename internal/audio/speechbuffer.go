// Package audio owns the real-time capture path: device streams, the
// bounded fork queues feeding the STT pipeline, and the speech accumulator
// an utterance is built up in between VAD events.
package audio

// SpeechBuffer accumulates 16kHz mono samples for one utterance until the
// caller drains it with Take, with a hard safety cap so a VAD that never
// fires SpeechEnd can't grow the buffer forever.
type SpeechBuffer struct {
	samples    []float32
	sampleRate int
	maxSamples int
}

// NewSpeechBuffer builds a buffer capped at maxDurationSecs of audio at
// sampleRate.
func NewSpeechBuffer(sampleRate int, maxDurationSecs int) *SpeechBuffer {
	return &SpeechBuffer{
		samples:    make([]float32, 0, sampleRate*5),
		sampleRate: sampleRate,
		maxSamples: sampleRate * maxDurationSecs,
	}
}

// Push appends a frame of samples to the buffer.
func (b *SpeechBuffer) Push(frame []float32) {
	b.samples = append(b.samples, frame...)
}

// Take drains and returns the accumulated buffer, or nil if it was empty.
func (b *SpeechBuffer) Take() []float32 {
	if len(b.samples) == 0 {
		return nil
	}
	out := b.samples
	b.samples = make([]float32, 0, b.sampleRate*5)
	return out
}

// DurationMs reports the current buffer duration in milliseconds.
func (b *SpeechBuffer) DurationMs() int64 {
	return int64(len(b.samples)) * 1000 / int64(b.sampleRate)
}

// IsFull reports whether the buffer has reached its safety cap.
func (b *SpeechBuffer) IsFull() bool {
	return len(b.samples) >= b.maxSamples
}

// Clear discards any accumulated samples without returning them.
func (b *SpeechBuffer) Clear() {
	b.samples = b.samples[:0]
}
