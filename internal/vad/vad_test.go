package vad

import (
	"math"
	"testing"
)

func TestSilenceOnZeros(t *testing.T) {
	v := New(DefaultConfig())
	silence := make([]float32, 160)
	if got := v.ProcessFrame(silence); got != Silence {
		t.Fatalf("got %v, want Silence", got)
	}
}

func TestSpeechOnSine(t *testing.T) {
	v := New(DefaultConfig())
	samples := sine(440, 0.5, 160)
	if got := v.ProcessFrame(samples); got != Speech {
		t.Fatalf("got %v, want Speech", got)
	}
}

func TestSpeechEndAfterSustainedSilence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SilenceLimit = 3
	v := New(cfg)

	speech := sine(440, 0.5, 160)
	silence := make([]float32, 160)

	if got := v.ProcessFrame(speech); got != Speech {
		t.Fatalf("frame 1: got %v, want Speech", got)
	}
	if got := v.ProcessFrame(silence); got != Silence {
		t.Fatalf("frame 2: got %v, want Silence", got)
	}
	if got := v.ProcessFrame(silence); got != Silence {
		t.Fatalf("frame 3: got %v, want Silence", got)
	}
	if got := v.ProcessFrame(silence); got != SpeechEnd {
		t.Fatalf("frame 4: got %v, want SpeechEnd", got)
	}
}

func TestSpeechEndAtExactSilenceLimit(t *testing.T) {
	v := New(DefaultConfig())
	speech := sine(440, 0.5, 160)
	silence := make([]float32, 160)

	v.ProcessFrame(speech)
	for i := 0; i < DefaultConfig().SilenceLimit-1; i++ {
		if got := v.ProcessFrame(silence); got != Silence {
			t.Fatalf("frame %d: got %v, want Silence", i, got)
		}
	}
	if got := v.ProcessFrame(silence); got != SpeechEnd {
		t.Fatalf("final frame: got %v, want SpeechEnd", got)
	}
}

func TestResetClearsState(t *testing.T) {
	v := New(DefaultConfig())
	v.ProcessFrame(sine(440, 0.5, 160))
	v.Reset()
	if v.hasSpeech || v.silenceFrames != 0 {
		t.Fatalf("reset did not clear state")
	}
}

func TestEmptyFrameIsSilence(t *testing.T) {
	v := New(DefaultConfig())
	if got := v.ProcessFrame(nil); got != Silence {
		t.Fatalf("got %v, want Silence", got)
	}
}

func sine(freqHz float64, amplitude float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/16000))
	}
	return out
}
