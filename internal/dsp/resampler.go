// Package dsp implements the fixed-input-chunk FFT resampler and the mono
// downmix helper the STT pipeline feeds raw device audio through before it
// reaches the voice-activity detector.
package dsp

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by New when rates or chunk size are not usable.
var ErrInvalidConfig = errors.New("dsp: invalid resampler configuration")

// ErrWrongInputSize is returned when a caller doesn't feed exactly
// InputFramesNext() frames per call.
var ErrWrongInputSize = errors.New("dsp: input does not match InputFramesNext")

// Resampler converts fixed-size chunks of audio from one sample rate to
// another using a frequency-domain (FFT) method, the same approach
// rubato's Fft resampler takes in the original implementation.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	chunkSize  int // input frames per call, per channel

	nFFT int // transform size for the input chunk, zero-padded to a power of two
	mFFT int // transform size for the resampled output
	outN int // number of valid output samples taken from the mFFT-point inverse transform
}

// New builds a Resampler. chunkSize is the number of input frames (not
// interleaved samples) the caller must supply on every Process call.
func New(inputRate, outputRate, channels, chunkSize int) (*Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 || channels <= 0 || chunkSize <= 0 {
		return nil, ErrInvalidConfig
	}

	outN := int(float64(chunkSize) * float64(outputRate) / float64(inputRate))
	if outN <= 0 {
		outN = 1
	}

	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		chunkSize:  chunkSize,
		nFFT:       nextPow2(chunkSize),
		mFFT:       nextPow2(outN),
		outN:       outN,
	}, nil
}

// InputFramesNext returns how many input frames (per channel) the next
// Process call expects.
func (r *Resampler) InputFramesNext() int {
	return r.chunkSize
}

// ProcessMono resamples a mono chunk of exactly InputFramesNext() samples.
func (r *Resampler) ProcessMono(mono []float32) ([]float32, error) {
	if len(mono) != r.chunkSize {
		return nil, fmt.Errorf("%w: got %d want %d", ErrWrongInputSize, len(mono), r.chunkSize)
	}
	return r.resample(mono), nil
}

// ProcessStereoToMono downmixes an interleaved multi-channel chunk (exactly
// InputFramesNext()*channels samples) to mono by arithmetic mean, then
// resamples.
func (r *Resampler) ProcessStereoToMono(interleaved []float32) ([]float32, error) {
	want := r.chunkSize * r.channels
	if len(interleaved) != want {
		return nil, fmt.Errorf("%w: got %d want %d", ErrWrongInputSize, len(interleaved), want)
	}

	mono := make([]float32, r.chunkSize)
	for i := 0; i < r.chunkSize; i++ {
		var sum float32
		base := i * r.channels
		for c := 0; c < r.channels; c++ {
			sum += interleaved[base+c]
		}
		mono[i] = sum / float32(r.channels)
	}
	return r.resample(mono), nil
}

// resample runs the forward FFT on the zero-padded input, truncates or
// zero-pads the spectrum to the output transform size, and runs the
// inverse FFT, rescaling for the change in transform length.
func (r *Resampler) resample(mono []float32) []float32 {
	spectrum := make([]complexF, r.nFFT)
	for i, s := range mono {
		spectrum[i] = complexF{re: float64(s)}
	}
	fft(spectrum, false)

	resized := make([]complexF, r.mFFT)
	half := r.nFFT / 2
	copyHalf := half
	if r.mFFT/2 < copyHalf {
		copyHalf = r.mFFT / 2
	}

	// Positive frequencies (including DC).
	for i := 0; i <= copyHalf; i++ {
		resized[i] = spectrum[i]
	}
	// Negative frequencies, mirrored from the end of each buffer.
	for i := 1; i <= copyHalf; i++ {
		resized[r.mFFT-i] = spectrum[r.nFFT-i]
	}

	fft(resized, true)

	scale := float64(r.mFFT) / float64(r.nFFT) / float64(r.mFFT)
	out := make([]float32, r.outN)
	for i := 0; i < r.outN; i++ {
		out[i] = clamp(float32(resized[i].re * scale))
	}
	return out
}
