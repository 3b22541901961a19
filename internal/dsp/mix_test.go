package dsp

import "testing"

func TestMixClampsAndAverages(t *testing.T) {
	a := []float32{1, -1, 0.4, 0.2}
	b := []float32{1, -1, 0.4, -0.6}

	out, err := Mix(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float32{1, -1, 0.4, -0.2}
	for i := range want {
		if diff := out[i] - want[i]; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("index %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestMixLengthMismatch(t *testing.T) {
	_, err := Mix([]float32{1, 2}, []float32{1})
	if err != ErrLengthMismatch {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}
