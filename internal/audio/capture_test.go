package audio

import (
	"testing"

	"github.com/lokutor-ai/meetingd/internal/logging"
)

func TestS16BytesToFloat32RoundTrips(t *testing.T) {
	buf := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	got := s16BytesToFloat32(buf)
	want := []float32{0, 32767.0 / 32768.0, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDownmixStereoAverages(t *testing.T) {
	got := downmixStereo([]float32{1, -1, 0.4, 0.2})
	want := []float32{0, 0.3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestClampF32(t *testing.T) {
	if got := clampF32(2); got != 1 {
		t.Fatalf("clamp(2) = %v, want 1", got)
	}
	if got := clampF32(-2); got != -1 {
		t.Fatalf("clamp(-2) = %v, want -1", got)
	}
}

func TestForkToSTTDropsWithoutBlockingWhenFull(t *testing.T) {
	c := NewCaptureManager(logging.NoOpLogger{})
	sink := make(chan []float32, 1)
	c.SetSTTSender(sink)

	c.forkToSTT([]float32{0.1})
	c.forkToSTT([]float32{0.2}) // queue already full, must not block

	got := <-sink
	if len(got) != 1 || got[0] != 0.1 {
		t.Fatalf("expected first forked frame to survive, got %v", got)
	}
}

func TestClearSTTSenderStopsForking(t *testing.T) {
	c := NewCaptureManager(logging.NoOpLogger{})
	sink := make(chan []float32, 1)
	c.SetSTTSender(sink)
	c.ClearSTTSender()

	c.forkToSTT([]float32{0.5})

	select {
	case <-sink:
		t.Fatalf("expected no forward after ClearSTTSender")
	default:
	}
}

func TestPublishBytesDropsOnFullOutputQueue(t *testing.T) {
	c := NewCaptureManager(logging.NoOpLogger{})
	for i := 0; i < QueueCapacity; i++ {
		c.Output <- []byte{0}
	}
	c.publishBytes([]float32{0.1}) // must not block even though Output is full
	if len(c.Output) != QueueCapacity {
		t.Fatalf("output queue length = %d, want %d", len(c.Output), QueueCapacity)
	}
}

func TestMicFormatReportsConfiguredRate(t *testing.T) {
	c := NewCaptureManager(logging.NoOpLogger{})
	c.micChannels = 1
	rate, channels := c.MicFormat()
	if rate != SampleRate || channels != 1 {
		t.Fatalf("MicFormat() = (%d, %d), want (%d, 1)", rate, channels, SampleRate)
	}
}
