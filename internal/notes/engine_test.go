package notes

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/lokutor-ai/meetingd/internal/events"
	"github.com/lokutor-ai/meetingd/internal/logging"
)

func seg(text string) TranscriptSegment {
	return TranscriptSegment{Text: text, TimestampMs: 0, SegmentID: "s"}
}

func TestTriggerLogicRespectsMinSegments(t *testing.T) {
	e := NewEngine(nil, Config{UpdateIntervalSecs: 0, SegmentThreshold: 10, MinSegments: 3})
	e.AddSegment(seg("a"))
	e.AddSegment(seg("b"))
	if e.ShouldUpdate() {
		t.Fatal("should not trigger below MinSegments even though the interval elapsed")
	}
	e.AddSegment(seg("c"))
	if !e.ShouldUpdate() {
		t.Fatal("should trigger once MinSegments is reached and the interval has elapsed")
	}
}

func TestTriggerLogicSegmentThreshold(t *testing.T) {
	e := NewEngine(nil, Config{UpdateIntervalSecs: 99999, SegmentThreshold: 3, MinSegments: 3})
	e.AddSegment(seg("a"))
	e.AddSegment(seg("b"))
	if e.ShouldUpdate() {
		t.Fatal("should not trigger before SegmentThreshold or MinSegments reached")
	}
	e.AddSegment(seg("c"))
	if !e.ShouldUpdate() {
		t.Fatal("should trigger at SegmentThreshold even with a far-future interval")
	}
}

func TestResetsEngine(t *testing.T) {
	e := NewEngine(nil, DefaultConfig())
	e.accumulated.KeyPoints = append(e.accumulated.KeyPoints, KeyPoint{Topic: "x"})
	e.AddSegment(seg("a"))
	e.Reset()

	if !e.AccumulatedNotes().IsEmpty() {
		t.Fatal("Reset should clear accumulated notes")
	}
	if len(e.pending) != 0 {
		t.Fatal("Reset should clear pending segments")
	}
}

type fakeSummarizer struct {
	response IncrementalNotesResponse
	err      error
	calls    int
	lastPending int
}

func (f *fakeSummarizer) GenerateIncrementalNotes(ctx context.Context, existing IncrementalNotesResponse, pending []TranscriptSegment) (IncrementalNotesResponse, error) {
	f.calls++
	f.lastPending = len(pending)
	if f.err != nil {
		return IncrementalNotesResponse{}, f.err
	}
	return f.response, nil
}

func TestUpdateNotesMergesClearsAndStampsTime(t *testing.T) {
	e := &Engine{
		config:     DefaultConfig(),
		lastUpdate: time.Now().Add(-time.Hour),
	}
	fs := &fakeSummarizer{response: IncrementalNotesResponse{
		KeyPoints: []KeyPoint{{Topic: "budget", Summary: "discussed", Timestamp: "00:01:00"}},
	}}
	e.summarizer = fs

	e.AddSegment(seg("we discussed the budget"))
	before := e.lastUpdate

	got, err := e.UpdateNotes(context.Background())
	if err != nil {
		t.Fatalf("UpdateNotes: %v", err)
	}
	if got.Count() != 1 {
		t.Fatalf("returned notes count = %d, want 1", got.Count())
	}
	if e.AccumulatedNotes().Count() != 1 {
		t.Fatalf("accumulated count = %d, want 1", e.AccumulatedNotes().Count())
	}
	if len(e.pending) != 0 {
		t.Fatal("pending should be cleared after a successful update")
	}
	if !e.lastUpdate.After(before) {
		t.Fatal("lastUpdate should be stamped forward after a successful update")
	}
}

func TestUpdateNotesNoOpWhenPendingEmpty(t *testing.T) {
	fs := &fakeSummarizer{}
	e := NewEngine(fs, DefaultConfig())

	got, err := e.UpdateNotes(context.Background())
	if err != nil {
		t.Fatalf("UpdateNotes: %v", err)
	}
	if !got.IsEmpty() {
		t.Fatal("expected an empty response when nothing is pending")
	}
	if fs.calls != 0 {
		t.Fatal("summarizer should not be called when pending is empty")
	}
}

func TestUpdateNotesPropagatesSummarizerError(t *testing.T) {
	fs := &fakeSummarizer{err: errors.New("model unavailable")}
	e := NewEngine(fs, DefaultConfig())
	e.AddSegment(seg("a"))

	if _, err := e.UpdateNotes(context.Background()); err == nil {
		t.Fatal("expected error to propagate from the summarizer")
	}
	// pending must survive a failed update so nothing is silently dropped.
	if len(e.pending) != 1 {
		t.Fatal("pending should be preserved when the summarizer call fails")
	}
}

type recordingStore struct {
	records []NoteRecord
	nextID  int64
}

func (s *recordingStore) InsertNotesBatch(meetingID int64, items []NoteRecord) ([]int64, error) {
	ids := make([]int64, len(items))
	for i, it := range items {
		s.nextID++
		ids[i] = s.nextID
		s.records = append(s.records, it)
	}
	return ids, nil
}

type recordingEmitter2 struct {
	events []events.Event
}

func (r *recordingEmitter2) Emit(e events.Event) {
	r.events = append(r.events, e)
}

func TestRunnerTickPersistsAndEmitsOnTrigger(t *testing.T) {
	fs := &fakeSummarizer{response: IncrementalNotesResponse{
		Decisions: []Decision{{Decision: "ship it", Timestamp: "00:00:10"}},
	}}
	store := &recordingStore{}
	emitter := &recordingEmitter2{}

	runner := NewRunner(store, emitter, logging.NoOpLogger{})
	engine := NewEngine(fs, Config{UpdateIntervalSecs: 0, SegmentThreshold: 1, MinSegments: 1})
	runner.engine = engine

	runner.Buffer().Push(seg("let's ship it"))
	runner.tick(context.Background(), 42)

	if len(store.records) != 1 {
		t.Fatalf("persisted records = %d, want 1", len(store.records))
	}
	if store.records[0].Category != CategoryDecision {
		t.Fatalf("category = %v, want %v", store.records[0].Category, CategoryDecision)
	}
	if len(emitter.events) != 1 || emitter.events[0].Type != events.TypeNotesUpdated {
		t.Fatalf("expected one notes-updated event, got %+v", emitter.events)
	}
}

func TestRunnerTickSkipsWhenEngineStopped(t *testing.T) {
	runner := NewRunner(nil, events.NoOpEmitter{}, logging.NoOpLogger{})
	runner.Buffer().Push(seg("hello"))
	// engine is nil (meeting not started / already stopped): tick must be a no-op.
	runner.tick(context.Background(), 1)
}

func TestTruncateUTF8StaysOnRuneBoundary(t *testing.T) {
	s := "héllo wörld" + string(make([]byte, 0))
	got := truncateUTF8(s, 3)
	if len(got) > 3 {
		t.Fatalf("truncated length %d exceeds max", len(got))
	}
	// Must not end mid-codepoint.
	if !utf8.ValidString(got) {
		t.Fatalf("truncated result %q ends mid-codepoint", got)
	}
}
