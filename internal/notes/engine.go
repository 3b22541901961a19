package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lokutor-ai/meetingd/internal/events"
	"github.com/lokutor-ai/meetingd/internal/logging"
)

// Config tunes when the engine decides it has enough new material to call
// the LLM again.
type Config struct {
	UpdateIntervalSecs int
	SegmentThreshold   int
	MinSegments        int
}

// DefaultConfig mirrors the original tuning: a 2-minute ceiling, an early
// trigger at 10 pending segments, never below 3.
func DefaultConfig() Config {
	return Config{UpdateIntervalSecs: 120, SegmentThreshold: 10, MinSegments: 3}
}

// Summarizer is the note-extraction surface the engine needs. Satisfied by
// *OllamaSummarizer; narrowed so tests can inject a fake.
type Summarizer interface {
	GenerateIncrementalNotes(ctx context.Context, existing IncrementalNotesResponse, pending []TranscriptSegment) (IncrementalNotesResponse, error)
}

// Engine holds one meeting's running note state: what's been extracted so
// far, what's waiting to be summarized, and when it last ran.
type Engine struct {
	summarizer  Summarizer
	config      Config
	accumulated IncrementalNotesResponse
	pending     []TranscriptSegment
	lastUpdate  time.Time
}

// NewEngine builds an engine over summarizer with the given trigger config.
func NewEngine(summarizer Summarizer, config Config) *Engine {
	return &Engine{
		summarizer: summarizer,
		config:     config,
		lastUpdate: time.Now(),
	}
}

// AddSegment queues a finalized transcript segment for the next update.
func (e *Engine) AddSegment(seg TranscriptSegment) {
	e.pending = append(e.pending, seg)
}

// ShouldUpdate is the hybrid time-or-count trigger: at least MinSegments
// pending, and either the interval elapsed or SegmentThreshold is reached.
func (e *Engine) ShouldUpdate() bool {
	if len(e.pending) < e.config.MinSegments {
		return false
	}
	timeTrigger := time.Since(e.lastUpdate) >= time.Duration(e.config.UpdateIntervalSecs)*time.Second
	segmentTrigger := len(e.pending) >= e.config.SegmentThreshold
	return timeTrigger || segmentTrigger
}

// UpdateNotes summarizes the pending segments against the accumulated
// notes, merges the result in, and clears pending. Returns just the newly
// extracted items.
func (e *Engine) UpdateNotes(ctx context.Context) (IncrementalNotesResponse, error) {
	if len(e.pending) == 0 {
		return Empty(), nil
	}

	newNotes, err := e.summarizer.GenerateIncrementalNotes(ctx, e.accumulated, e.pending)
	if err != nil {
		return IncrementalNotesResponse{}, err
	}

	e.accumulated.Merge(newNotes)
	e.pending = nil
	e.lastUpdate = time.Now()
	return newNotes, nil
}

// AccumulatedNotes returns everything extracted so far this meeting.
func (e *Engine) AccumulatedNotes() IncrementalNotesResponse {
	return e.accumulated
}

// Reset clears all state, as if the engine were freshly created.
func (e *Engine) Reset() {
	e.accumulated = Empty()
	e.pending = nil
	e.lastUpdate = time.Now()
}

// SegmentBuffer is the STT pipeline's push side and the note loop's drain
// side of the pending-segment hand-off. Backed by a plain mutex (not a
// channel) since the STT pipeline pushes from a non-cooperative goroutine
// and must never block on a slow note loop.
type SegmentBuffer struct {
	mu       sync.Mutex
	segments []TranscriptSegment
}

// Push appends a segment. Safe to call concurrently with Drain.
func (b *SegmentBuffer) Push(seg TranscriptSegment) {
	b.mu.Lock()
	b.segments = append(b.segments, seg)
	b.mu.Unlock()
}

// Drain returns everything pushed since the last Drain and clears the
// buffer.
func (b *SegmentBuffer) Drain() []TranscriptSegment {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.segments) == 0 {
		return nil
	}
	out := b.segments
	b.segments = nil
	return out
}

// Clear discards any pending segments without returning them, so a prior
// meeting's leftovers never drain into the next meeting's engine.
func (b *SegmentBuffer) Clear() {
	b.mu.Lock()
	b.segments = nil
	b.mu.Unlock()
}

// maxNoteContentBytes caps a single note's serialized JSON before insert.
const maxNoteContentBytes = 2048

// Store is the persistence surface the note loop needs to durably record a
// batch of newly extracted notes.
type Store interface {
	InsertNotesBatch(meetingID int64, items []NoteRecord) ([]int64, error)
}

// NoteRecord is one note ready to be persisted: its category and
// already-serialized (and size-capped) JSON content.
type NoteRecord struct {
	Category Category
	Content  string
}

// Runner drives the periodic note-generation loop alongside a meeting: it
// drains segments pushed by the STT pipeline, asks the engine whether
// enough has accumulated, and on a positive answer runs the summarizer and
// persists+emits the result.
type Runner struct {
	mu      sync.Mutex
	engine  *Engine
	buffer  *SegmentBuffer
	store   Store
	emitter events.Emitter
	logger  logging.Logger
	cancel  context.CancelFunc
}

// NewRunner builds a Runner. store may be nil (notes stream but aren't
// persisted); emitter defaults to a no-op.
func NewRunner(store Store, emitter events.Emitter, logger logging.Logger) *Runner {
	if emitter == nil {
		emitter = events.NoOpEmitter{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Runner{
		buffer:  &SegmentBuffer{},
		store:   store,
		emitter: emitter,
		logger:  logger,
	}
}

// Buffer returns the segment buffer the STT pipeline should push finalized
// segments into.
func (r *Runner) Buffer() *SegmentBuffer {
	return r.buffer
}

// Start cancels any stale loop from a prior meeting, clears any segments
// left over from that prior meeting, installs engine as the active engine,
// and spawns the 30s-ticked generation loop for meetingID.
func (r *Runner) Start(engine *Engine, meetingID int64) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.engine = engine
	r.cancel = cancel
	r.mu.Unlock()

	r.buffer.Clear()

	go r.loop(ctx, meetingID)
}

// Stop ends the active meeting's note loop: nils the engine pointer (so
// the loop exits on its next tick even if cancellation races), cancels its
// context, and clears the segment buffer so a final drain racing with
// pipeline shutdown can't leak into the next meeting.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.engine = nil
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.buffer.Clear()
}

func (r *Runner) loop(ctx context.Context, meetingID int64) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("note loop panicked: meeting=%d recover=%v", meetingID, rec)
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			stopped := r.engine == nil
			r.mu.Unlock()
			if stopped {
				return
			}
			r.tick(ctx, meetingID)
		}
	}
}

func (r *Runner) tick(ctx context.Context, meetingID int64) {
	drained := r.buffer.Drain()

	r.mu.Lock()
	engine := r.engine
	if engine == nil {
		r.mu.Unlock()
		return
	}
	for _, seg := range drained {
		engine.AddSegment(seg)
	}
	shouldUpdate := engine.ShouldUpdate()
	r.mu.Unlock()

	if !shouldUpdate {
		return
	}

	// Released the lock before the summarizer's network call so a pending
	// segment push is never blocked on it.
	newNotes, err := engine.UpdateNotes(ctx)
	if err != nil {
		r.emitter.Emit(events.Event{
			Type: events.TypeNotesError,
			Data: events.NotesError{MeetingID: meetingID, Error: err.Error()},
		})
		return
	}
	if newNotes.IsEmpty() {
		return
	}

	ids, err := r.persist(meetingID, newNotes)
	if err != nil {
		r.emitter.Emit(events.Event{
			Type: events.TypeNotesError,
			Data: events.NotesError{MeetingID: meetingID, Error: err.Error()},
		})
		return
	}

	r.emitter.Emit(events.Event{
		Type: events.TypeNotesUpdated,
		Data: events.NotesUpdated{
			MeetingID:   meetingID,
			NewNotes:    newNotes,
			TotalCount:  engine.AccumulatedNotes().Count(),
			InsertedIDs: ids,
		},
	})
}

func (r *Runner) persist(meetingID int64, newNotes IncrementalNotesResponse) ([]int64, error) {
	if r.store == nil {
		return nil, nil
	}

	var records []NoteRecord
	for _, kp := range newNotes.KeyPoints {
		records = append(records, NoteRecord{Category: CategoryKeyPoint, Content: marshalTruncated(kp)})
	}
	for _, d := range newNotes.Decisions {
		records = append(records, NoteRecord{Category: CategoryDecision, Content: marshalTruncated(d)})
	}
	for _, a := range newNotes.ActionItems {
		records = append(records, NoteRecord{Category: CategoryActionItem, Content: marshalTruncated(a)})
	}
	for _, risk := range newNotes.Risks {
		records = append(records, NoteRecord{Category: CategoryRisk, Content: marshalTruncated(risk)})
	}

	ids, err := r.store.InsertNotesBatch(meetingID, records)
	if err != nil {
		return nil, fmt.Errorf("notes: insert batch: %w", err)
	}
	return ids, nil
}

func marshalTruncated(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return truncateUTF8(string(b), maxNoteContentBytes)
}

// truncateUTF8 shortens s to at most maxBytes, backing off to the nearest
// preceding rune boundary so the result is never a mid-codepoint cut.
func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && isUTF8Continuation(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}
