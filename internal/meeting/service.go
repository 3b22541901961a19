// Package meeting wires the capture manager, STT pipeline, translation
// fan-out, note engine and persistence façade into one meeting lifecycle:
// StartAudioCapture/StartMeeting/StopMeeting and their inverses.
package meeting

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/lokutor-ai/meetingd/internal/audio"
	"github.com/lokutor-ai/meetingd/internal/config"
	"github.com/lokutor-ai/meetingd/internal/events"
	"github.com/lokutor-ai/meetingd/internal/llm"
	"github.com/lokutor-ai/meetingd/internal/logging"
	"github.com/lokutor-ai/meetingd/internal/notes"
	"github.com/lokutor-ai/meetingd/internal/sttpipeline"
	"github.com/lokutor-ai/meetingd/internal/store"
	"github.com/lokutor-ai/meetingd/internal/translation"
	"github.com/lokutor-ai/meetingd/internal/whisper"
)

// defaultTargetLangs is used when start_meeting omits target_langs.
var defaultTargetLangs = []string{"vi"}

const defaultSourceLang = "en"

// Service owns every piece of per-meeting state and the rules for
// starting/stopping audio capture and a meeting independent of one
// another: capture can run without a meeting (preview), and stopping a
// meeting never stops capture.
type Service struct {
	cfg     config.Config
	store   *store.Store
	emitter events.Emitter
	logger  logging.Logger

	capture *audio.CaptureManager
	pool    *whisper.Pool
	chatter *llm.Client
	fanout  *translation.FanOut
	noteRun *notes.Runner

	mu          sync.Mutex
	captureOn   bool
	pipeline    *sttpipeline.Pipeline
	targetLangs []string
}

// New builds a Service. pool may be nil if the whisper model hasn't been
// downloaded yet; StartMeeting refuses with a guidance message in that
// case.
func New(cfg config.Config, st *store.Store, pool *whisper.Pool, chatter *llm.Client, emitter events.Emitter, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if emitter == nil {
		emitter = events.NoOpEmitter{}
	}

	fanout := translation.New(chatter, st, emitter, logger, int64(cfg.TranslationCap))
	noteRun := notes.NewRunner(st, emitter, logger)

	return &Service{
		cfg:     cfg,
		store:   st,
		emitter: emitter,
		logger:  logger,
		capture: audio.NewCaptureManager(logger),
		pool:    pool,
		chatter: chatter,
		fanout:  fanout,
		noteRun: noteRun,
	}
}

// Capture exposes the capture manager for the transport layer's raw
// audio byte stream.
func (s *Service) Capture() *audio.CaptureManager {
	return s.capture
}

// FanOut exposes the translation fan-out for direct translate_text calls.
func (s *Service) FanOut() *translation.FanOut {
	return s.fanout
}

// StartAudioCapture opens the microphone (and loopback, if available).
// Rejects if capture is already running.
func (s *Service) StartAudioCapture() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.captureOn {
		return "", fmt.Errorf("audio capture already running")
	}
	if err := s.capture.Start(); err != nil {
		return "", fmt.Errorf("start audio capture: %w", err)
	}
	s.captureOn = true
	return "audio capture started", nil
}

// StopAudioCapture halts capture independent of any running meeting.
func (s *Service) StopAudioCapture() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.captureOn {
		return "", fmt.Errorf("audio capture is not running")
	}
	s.capture.Stop()
	s.captureOn = false
	return "audio capture stopped", nil
}

// StartMeeting requires an active whisper pool and capture stream, opens
// a meeting row, and spawns the STT pipeline and note-generation loop.
// Rejects if a meeting is already active.
func (s *Service) StartMeeting(srcLang string, targetLangs []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, active := s.store.ActiveMeetingID(); active {
		return "", fmt.Errorf("a meeting is already in progress")
	}
	if s.pool == nil {
		return "", fmt.Errorf("whisper model not downloaded: run download_model first")
	}
	if !s.captureOn {
		return "", fmt.Errorf("start audio capture before starting a meeting")
	}

	if srcLang == "" {
		srcLang = defaultSourceLang
	}
	if len(targetLangs) == 0 {
		targetLangs = defaultTargetLangs
	}
	targetCSV := ""
	for i, l := range targetLangs {
		if i > 0 {
			targetCSV += ","
		}
		targetCSV += l
	}

	meetingID, err := s.store.CreateMeeting(srcLang, targetCSV)
	if err != nil {
		return "", fmt.Errorf("create meeting: %w", err)
	}
	s.store.SetActiveMeeting(meetingID)

	sampleRate, channels := s.capture.MicFormat()
	fork := make(chan []float32, audio.QueueCapacity)
	s.capture.SetSTTSender(fork)

	noteEngine := notes.NewEngine(notes.NewOllamaSummarizer(s.chatter), notes.Config{
		UpdateIntervalSecs: int(s.cfg.NoteUpdateSecs),
		SegmentThreshold:   s.cfg.NoteSegThreshold,
		MinSegments:        s.cfg.NoteMinSegments,
	})
	s.noteRun.Start(noteEngine, meetingID)

	pipeline, err := sttpipeline.New(fork, s.pool, s.emitter, s.store, s.noteRun.Buffer(), s.logger, sttpipeline.Config{
		MicSampleRate: sampleRate,
		MicChannels:   channels,
		Language:      srcLang,
	})
	if err != nil {
		s.store.ClearActiveMeeting()
		s.noteRun.Stop()
		s.capture.ClearSTTSender()
		return "", fmt.Errorf("build stt pipeline: %w", err)
	}
	pipeline.SetTranslator(s.fanout, targetLangs)
	pipeline.Start()

	s.pipeline = pipeline
	s.targetLangs = targetLangs
	return "meeting started", nil
}

// StopMeeting tears the meeting down in this order: stop+join the STT
// pipeline first so its final drain (if any) lands in the note buffer
// before the note runner stops and clears that buffer, then stop the note
// loop, clear the capture fork, close the meeting row and clear the active
// meeting id. Audio capture itself keeps running.
func (s *Service) StopMeeting() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meetingID, active := s.store.ActiveMeetingID()
	if !active {
		return "", fmt.Errorf("no meeting in progress")
	}

	if s.pipeline != nil {
		s.pipeline.Stop()
		s.pipeline = nil
	}
	s.noteRun.Stop()
	s.capture.ClearSTTSender()

	if err := s.store.EndMeeting(meetingID); err != nil {
		s.logger.Error("end meeting %d: %v", meetingID, err)
	}
	s.store.ClearActiveMeeting()

	return "meeting stopped", nil
}

// GenerateMemo builds a memo from a meeting's persisted notes (not the
// live in-memory engine, which may have already flushed or may belong to
// a different, since-ended meeting).
func (s *Service) GenerateMemo(meetingID int64) (string, error) {
	meeting, err := s.store.GetMeeting(meetingID)
	if err != nil {
		return "", fmt.Errorf("load meeting: %w", err)
	}

	records, err := s.store.GetNotes(meetingID, "")
	if err != nil {
		return "", fmt.Errorf("load notes: %w", err)
	}

	accumulated, err := parseNoteRecords(records)
	if err != nil {
		return "", err
	}

	return notes.BuildMemo(meeting.Title, meeting.StartedAt, accumulated), nil
}

// ExportMemo generates a meeting's memo and writes it to path, returning
// the path on success.
func (s *Service) ExportMemo(meetingID int64, path string) (string, error) {
	memo, err := s.GenerateMemo(meetingID)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(memo), 0o644); err != nil {
		return "", fmt.Errorf("write memo file: %w", err)
	}
	return path, nil
}

func parseNoteRecords(records []store.Note) (notes.IncrementalNotesResponse, error) {
	var out notes.IncrementalNotesResponse
	for _, r := range records {
		switch notes.Category(r.NoteType) {
		case notes.CategoryKeyPoint:
			var kp notes.KeyPoint
			if err := json.Unmarshal([]byte(r.Content), &kp); err != nil {
				return out, fmt.Errorf("parse key_point note %d: %w", r.ID, err)
			}
			out.KeyPoints = append(out.KeyPoints, kp)
		case notes.CategoryDecision:
			var d notes.Decision
			if err := json.Unmarshal([]byte(r.Content), &d); err != nil {
				return out, fmt.Errorf("parse decision note %d: %w", r.ID, err)
			}
			out.Decisions = append(out.Decisions, d)
		case notes.CategoryActionItem:
			var a notes.ActionItem
			if err := json.Unmarshal([]byte(r.Content), &a); err != nil {
				return out, fmt.Errorf("parse action_item note %d: %w", r.ID, err)
			}
			out.ActionItems = append(out.ActionItems, a)
		case notes.CategoryRisk:
			var risk notes.Risk
			if err := json.Unmarshal([]byte(r.Content), &risk); err != nil {
				return out, fmt.Errorf("parse risk note %d: %w", r.ID, err)
			}
			out.Risks = append(out.Risks, risk)
		}
	}
	return out, nil
}
