// Package sttpipeline wires together resampling, voice-activity detection,
// speech accumulation and Whisper inference into the per-meeting
// transcription loop: raw forked mic samples in, transcript rows and
// stt-partial events out.
package sttpipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lokutor-ai/meetingd/internal/audio"
	"github.com/lokutor-ai/meetingd/internal/dsp"
	"github.com/lokutor-ai/meetingd/internal/events"
	"github.com/lokutor-ai/meetingd/internal/logging"
	"github.com/lokutor-ai/meetingd/internal/notes"
	"github.com/lokutor-ai/meetingd/internal/vad"
	"github.com/lokutor-ai/meetingd/internal/whisper"
)

const (
	targetSampleRate  = 16000
	resampleChunk     = 1024 // input frames per resampler call
	vadFrameSamples   = 160  // 10ms at 16kHz
	recvTimeoutMs     = 50
	maxUtteranceSecs  = 30
	defaultNoteBuffer = 64
)

// Transcriber is the inference surface the pipeline needs. Satisfied by
// *whisper.Pool; narrowed so tests can inject a fake.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, baseTimeMs int64) ([]whisper.Segment, error)
}

// Store is the persistence surface the pipeline needs: which meeting (if
// any) is active, and where to record a finalized transcript row.
type Store interface {
	ActiveMeetingID() (int64, bool)
	InsertTranscript(meetingID int64, text, segmentID string, tsMs int64) (int64, error)
}

// Translator kicks off per-language translation for one finalized segment.
// Satisfied by *translation.FanOut; narrowed so the pipeline doesn't import
// the translation package's concrete type.
type Translator interface {
	Translate(segmentID, text string, targetLangs []string) error
}

// Config configures resampling and the language tag stamped on emitted
// events.
type Config struct {
	MicSampleRate int
	MicChannels   int
	Language      string
}

// Pipeline drains forked mic samples, runs them through the VAD-gated
// speech accumulator, and hands complete utterances to Whisper.
type Pipeline struct {
	fork        <-chan []float32
	transcriber Transcriber
	emitter     events.Emitter
	store       Store
	noteBuffer  *notes.SegmentBuffer
	logger      logging.Logger
	config      Config

	resampler *dsp.Resampler
	inScratch []float32 // accumulates raw interleaved frames to resampleChunk
	frame     []float32 // accumulates resampled mono to vadFrameSamples
	speechBuf *audio.SpeechBuffer
	detector  *vad.EnergyVAD
	counter   int64

	translator  Translator
	targetLangs []string

	startedAt time.Time
	running   atomic.Bool
	wg        sync.WaitGroup
}

// SetTranslator installs the per-segment translation fan-out and the
// target languages each finalized segment should be translated into. Safe
// to call before Start; a nil translator (the default) skips translation
// and only emits/persists the transcript.
func (p *Pipeline) SetTranslator(t Translator, targetLangs []string) {
	p.translator = t
	p.targetLangs = targetLangs
}

// New builds a pipeline reading from fork. fork is owned by the caller
// (the capture manager's SetSTTSender channel); the pipeline only reads it.
func New(fork <-chan []float32, transcriber Transcriber, emitter events.Emitter, store Store, noteBuffer *notes.SegmentBuffer, logger logging.Logger, config Config) (*Pipeline, error) {
	if emitter == nil {
		emitter = events.NoOpEmitter{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	p := &Pipeline{
		fork:        fork,
		transcriber: transcriber,
		emitter:     emitter,
		store:       store,
		noteBuffer:  noteBuffer,
		logger:      logger,
		config:      config,
		speechBuf:   audio.NewSpeechBuffer(targetSampleRate, maxUtteranceSecs),
		detector:    vad.New(vad.DefaultConfig()),
	}

	if config.MicSampleRate != targetSampleRate || config.MicChannels != 1 {
		r, err := dsp.New(config.MicSampleRate, targetSampleRate, config.MicChannels, resampleChunk)
		if err != nil {
			return nil, fmt.Errorf("sttpipeline: build resampler: %w", err)
		}
		p.resampler = r
	}

	return p, nil
}

// Start spawns the pipeline's drain goroutine and marks t0 for baseTimeMs.
func (p *Pipeline) Start() {
	p.startedAt = time.Now()
	p.running.Store(true)
	p.wg.Add(1)
	go p.run()
}

// Stop signals the loop to exit and blocks until it has drained any
// remaining buffered speech through one final transcription.
func (p *Pipeline) Stop() {
	p.running.Store(false)
	p.wg.Wait()
}

func (p *Pipeline) run() {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("stt pipeline panicked: recover=%v", r)
		}
	}()

	for p.running.Load() {
		select {
		case samples, ok := <-p.fork:
			if !ok {
				p.finalDrain()
				return
			}
			p.ingest(samples)
		case <-time.After(recvTimeoutMs * time.Millisecond):
		}
	}
	p.finalDrain()
}

func (p *Pipeline) finalDrain() {
	if audioOut := p.speechBuf.Take(); len(audioOut) > 0 {
		p.runSTTAndEmit(audioOut, p.baseTimeMs())
	}
}

// ingest feeds one batch of raw mic samples (at the configured mic
// format) through resampling, frame accumulation and VAD.
func (p *Pipeline) ingest(samples []float32) {
	mono := samples
	if p.resampler != nil {
		mono = p.resampleAll(samples)
	}

	p.frame = append(p.frame, mono...)
	for len(p.frame) >= vadFrameSamples {
		frame := p.frame[:vadFrameSamples]
		p.frame = append([]float32(nil), p.frame[vadFrameSamples:]...)
		p.handleFrame(frame)
	}
}

// resampleAll pushes samples through the resampler in fixed chunkSize*channels
// input slices, buffering any remainder for the next call.
func (p *Pipeline) resampleAll(samples []float32) []float32 {
	p.inScratch = append(p.inScratch, samples...)

	channels := p.config.MicChannels
	chunkLen := resampleChunk * channels

	var out []float32
	for len(p.inScratch) >= chunkLen {
		chunk := p.inScratch[:chunkLen]
		p.inScratch = append([]float32(nil), p.inScratch[chunkLen:]...)

		var resampled []float32
		var err error
		if channels == 1 {
			resampled, err = p.resampler.ProcessMono(chunk)
		} else {
			resampled, err = p.resampler.ProcessStereoToMono(chunk)
		}
		if err != nil {
			p.logger.Warn("resample chunk: %v", err)
			continue
		}
		out = append(out, resampled...)
	}
	return out
}

func (p *Pipeline) handleFrame(frame []float32) {
	switch p.detector.ProcessFrame(frame) {
	case vad.Speech:
		p.speechBuf.Push(frame)
	case vad.Silence:
	case vad.SpeechEnd:
		if audioOut := p.speechBuf.Take(); len(audioOut) > 0 {
			p.runSTTAndEmit(audioOut, p.baseTimeMs())
		}
	}

	if p.speechBuf.IsFull() {
		audioOut := p.speechBuf.Take()
		p.detector = vad.New(vad.DefaultConfig())
		if len(audioOut) > 0 {
			p.runSTTAndEmit(audioOut, p.baseTimeMs())
		}
	}
}

// baseTimeMs is the time elapsed since the pipeline's own start at the
// moment an utterance is handed to Whisper (after its trailing silence or a
// forced drain), not wall-clock epoch time: start_ms/end_ms are offsets
// from meeting start.
func (p *Pipeline) baseTimeMs() int64 {
	return time.Since(p.startedAt).Milliseconds()
}

func (p *Pipeline) runSTTAndEmit(audioSamples []float32, baseMs int64) {
	segments, err := p.transcriber.Transcribe(context.Background(), audioSamples, baseMs)
	if err != nil {
		p.logger.Error("whisper transcribe: %v", err)
		return
	}

	for _, seg := range segments {
		n := atomic.AddInt64(&p.counter, 1)
		segmentID := fmt.Sprintf("seg-%d-%d", n, seg.StartMs)

		p.emitter.Emit(events.Event{
			Type: events.TypeSTTPartial,
			Data: events.STTPartial{
				Text:      seg.Text,
				Language:  p.config.Language,
				StartMs:   seg.StartMs,
				EndMs:     seg.EndMs,
				IsFinal:   true,
				SegmentID: segmentID,
			},
		})

		p.persistFinal(seg, segmentID)
	}
}

func (p *Pipeline) persistFinal(seg whisper.Segment, segmentID string) {
	meetingID, active := p.store.ActiveMeetingID()
	if !active {
		return
	}

	if _, err := p.store.InsertTranscript(meetingID, seg.Text, segmentID, seg.StartMs); err != nil {
		p.logger.Error("insert transcript: %v", err)
		return
	}

	if p.noteBuffer != nil {
		p.noteBuffer.Push(notes.TranscriptSegment{
			Text:        seg.Text,
			TimestampMs: seg.StartMs,
			SegmentID:   segmentID,
		})
	}

	if p.translator != nil && len(p.targetLangs) > 0 {
		if err := p.translator.Translate(segmentID, seg.Text, p.targetLangs); err != nil {
			p.logger.Warn("translate segment %s: %v", segmentID, err)
		}
	}
}
