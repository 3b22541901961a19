package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/lokutor-ai/meetingd/internal/logging"
)

// SampleRate is the native capture rate requested from the device. The STT
// pipeline resamples down to 16kHz itself, so the capture manager never has
// to reason about the model's rate.
const SampleRate = 48000

// CaptureManager owns the microphone input stream and, where the backend
// supports it, a system-audio loopback stream. The microphone stream feeds
// a bounded output queue of little-endian float32 bytes for the UI; both
// streams, when an STT sender is installed, fork float32 samples to the STT
// pipeline (the loopback stream downmixed to mono).
type CaptureManager struct {
	logger logging.Logger

	mctx       *malgo.AllocatedContext
	micDevice  *malgo.Device
	loopDevice *malgo.Device

	running atomic.Bool

	micChannels int

	sttMu  sync.RWMutex
	stt    chan<- []float32
	loopOn bool

	Output   chan []byte   // UI-facing PCM bytes, mic path only
	micQueue chan []float32
}

// NewCaptureManager builds a manager with its bounded queues allocated but
// no device opened yet.
func NewCaptureManager(logger logging.Logger) *CaptureManager {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &CaptureManager{
		logger:   logger,
		Output:   make(chan []byte, QueueCapacity),
		micQueue: make(chan []float32, QueueCapacity),
	}
}

// Start opens the default capture device and, if the backend exposes a
// loopback-capable device, a second stream reading system playback output.
// Loopback failures are logged and swallowed: transcription still works
// from the microphone alone.
func (c *CaptureManager) Start() error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return err
	}
	c.mctx = mctx

	micCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	micCfg.Capture.Format = malgo.FormatS16
	micCfg.Capture.Channels = 1
	micCfg.SampleRate = SampleRate
	micCfg.Alsa.NoMMap = 1

	micDevice, err := malgo.InitDevice(mctx.Context, micCfg, malgo.DeviceCallbacks{
		Data: c.onMicSamples,
	})
	if err != nil {
		mctx.Uninit()
		return err
	}
	c.micDevice = micDevice
	c.micChannels = 1

	if err := micDevice.Start(); err != nil {
		micDevice.Uninit()
		mctx.Uninit()
		return err
	}

	c.running.Store(true)
	go c.processMic()

	if err := c.startLoopback(mctx); err != nil {
		c.logger.Warn("loopback capture unavailable: %v", err)
	}

	return nil
}

func (c *CaptureManager) startLoopback(mctx *malgo.AllocatedContext) error {
	devices, err := mctx.Devices(malgo.Loopback)
	if err != nil || len(devices) == 0 {
		return err
	}

	loopCfg := malgo.DefaultDeviceConfig(malgo.Loopback)
	loopCfg.Capture.Format = malgo.FormatS16
	loopCfg.Capture.Channels = 2
	loopCfg.Capture.DeviceID = &devices[0].ID
	loopCfg.SampleRate = SampleRate

	loopDevice, err := malgo.InitDevice(mctx.Context, loopCfg, malgo.DeviceCallbacks{
		Data: c.onLoopbackSamples,
	})
	if err != nil {
		return err
	}
	if err := loopDevice.Start(); err != nil {
		loopDevice.Uninit()
		return err
	}

	c.loopDevice = loopDevice
	c.loopOn = true
	return nil
}

func (c *CaptureManager) onMicSamples(_, pInput []byte, _ uint32) {
	if !c.running.Load() || len(pInput) == 0 {
		return
	}
	samples := s16BytesToFloat32(pInput)
	select {
	case c.micQueue <- samples:
	default:
		c.logger.Warn("mic queue full, dropping frame")
	}
}

func (c *CaptureManager) onLoopbackSamples(_, pInput []byte, _ uint32) {
	if !c.running.Load() || len(pInput) == 0 {
		return
	}
	samples := s16BytesToFloat32(pInput)
	c.forkToSTT(downmixStereo(samples))
}

// processMic drains the mic queue, republishes it as bytes for the UI and
// forks a float32 copy to the STT pipeline when one is installed.
func (c *CaptureManager) processMic() {
	for c.running.Load() {
		select {
		case samples := <-c.micQueue:
			c.publishBytes(samples)
			c.forkToSTT(samples)
		case <-time.After(ProcessorRecvTimeoutMs * time.Millisecond):
		}
	}
}

func (c *CaptureManager) publishBytes(samples []float32) {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(clampF32(s)))
	}
	select {
	case c.Output <- buf:
	default:
		c.logger.Warn("output queue full, dropping frame")
	}
}

func (c *CaptureManager) forkToSTT(samples []float32) {
	c.sttMu.RLock()
	sink := c.stt
	c.sttMu.RUnlock()
	if sink == nil {
		return
	}
	select {
	case sink <- samples:
	default:
		c.logger.Warn("stt fork queue full, dropping frame")
	}
}

// SetSTTSender installs the channel the capture manager forks mic (and
// loopback, if active) samples to. Safe to call while streams are running.
func (c *CaptureManager) SetSTTSender(ch chan<- []float32) {
	c.sttMu.Lock()
	c.stt = ch
	c.sttMu.Unlock()
}

// ClearSTTSender removes the fork target; forked samples are dropped until
// a new sender is installed.
func (c *CaptureManager) ClearSTTSender() {
	c.sttMu.Lock()
	c.stt = nil
	c.sttMu.Unlock()
}

// MicFormat reports the microphone stream's sample rate and channel count.
// Only meaningful after Start succeeds.
func (c *CaptureManager) MicFormat() (int, int) {
	return SampleRate, c.micChannels
}

// LoopbackActive reports whether a system-audio loopback stream is running
// alongside the microphone capture.
func (c *CaptureManager) LoopbackActive() bool {
	return c.loopOn
}

// Device describes one capture-capable input device as reported by the
// backend.
type Device struct {
	ID   string
	Name string
}

// ListDevices enumerates capture input devices without opening any of
// them, for the UI's device picker.
func ListDevices() ([]Device, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	defer mctx.Uninit()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}

	out := make([]Device, 0, len(infos))
	for i, d := range infos {
		out = append(out, Device{ID: fmt.Sprintf("%d", i), Name: d.Name()})
	}
	return out, nil
}

// Stop halts and releases both device streams.
func (c *CaptureManager) Stop() {
	c.running.Store(false)
	c.ClearSTTSender()

	if c.loopDevice != nil {
		c.loopDevice.Uninit()
		c.loopDevice = nil
		c.loopOn = false
	}
	if c.micDevice != nil {
		c.micDevice.Uninit()
		c.micDevice = nil
	}
	if c.mctx != nil {
		c.mctx.Uninit()
		c.mctx = nil
	}
}

func s16BytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/2)
	for i := range out {
		sample := int16(b[i*2]) | int16(b[i*2+1])<<8
		out[i] = float32(sample) / 32768.0
	}
	return out
}

func downmixStereo(interleaved []float32) []float32 {
	out := make([]float32, len(interleaved)/2)
	for i := range out {
		out[i] = (interleaved[i*2] + interleaved[i*2+1]) / 2
	}
	return out
}

func clampF32(v float32) float32 {
	return float32(math.Max(-1, math.Min(1, float64(v))))
}
