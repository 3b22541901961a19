package dsp

import (
	"errors"
	"math"
	"testing"
)

func TestResamplerDownsamplesToExpectedLength(t *testing.T) {
	r, err := New(48000, 16000, 1, 1024)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := make([]float32, r.InputFramesNext())
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 48000))
	}

	out, err := r.ProcessMono(in)
	if err != nil {
		t.Fatalf("ProcessMono: %v", err)
	}

	wantLen := 1024 * 16000 / 48000
	if len(out) != wantLen {
		t.Fatalf("got %d samples, want %d", len(out), wantLen)
	}

	for i, s := range out {
		if s > 1 || s < -1 {
			t.Fatalf("sample %d out of range: %v", i, s)
		}
	}
}

func TestResamplerStereoToMonoWrongSize(t *testing.T) {
	r, _ := New(48000, 16000, 2, 256)
	_, err := r.ProcessStereoToMono(make([]float32, 10))
	if !errors.Is(err, ErrWrongInputSize) {
		t.Fatalf("expected ErrWrongInputSize, got %v", err)
	}
}

func TestResamplerPassthroughRateKeepsLength(t *testing.T) {
	r, err := New(16000, 16000, 1, 160)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := make([]float32, 160)
	for i := range in {
		in[i] = 0.5
	}
	out, err := r.ProcessMono(in)
	if err != nil {
		t.Fatalf("ProcessMono: %v", err)
	}
	if len(out) != 160 {
		t.Fatalf("got %d samples, want 160", len(out))
	}
}
