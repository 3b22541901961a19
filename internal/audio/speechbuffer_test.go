package audio

import "testing"

func TestSpeechBufferAccumulatesAndDrains(t *testing.T) {
	b := NewSpeechBuffer(16000, 30)
	b.Push([]float32{0.1, 0.2, 0.3})
	b.Push([]float32{0.4, 0.5})

	if got := b.DurationMs(); got != 0 {
		t.Fatalf("duration = %d, want 0 (5 samples at 16kHz rounds down)", got)
	}

	taken := b.Take()
	if len(taken) != 5 {
		t.Fatalf("took %d samples, want 5", len(taken))
	}
	if b.Take() != nil {
		t.Fatalf("expected nil after drain")
	}
}

func TestSpeechBufferMaxDurationCap(t *testing.T) {
	b := NewSpeechBuffer(16000, 1)
	chunk := make([]float32, 16001)
	for i := range chunk {
		chunk[i] = 0.5
	}
	b.Push(chunk)
	if !b.IsFull() {
		t.Fatalf("expected buffer to report full at >= 16001 samples")
	}
}

func TestSpeechBufferTakeEmptyReturnsNil(t *testing.T) {
	b := NewSpeechBuffer(16000, 30)
	if b.Take() != nil {
		t.Fatalf("expected nil from an empty buffer")
	}
}
