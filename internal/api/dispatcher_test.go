package api

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/lokutor-ai/meetingd/internal/config"
	"github.com/lokutor-ai/meetingd/internal/events"
	"github.com/lokutor-ai/meetingd/internal/llm"
	"github.com/lokutor-ai/meetingd/internal/logging"
	"github.com/lokutor-ai/meetingd/internal/meeting"
	"github.com/lokutor-ai/meetingd/internal/notes"
	"github.com/lokutor-ai/meetingd/internal/store"
	"github.com/lokutor-ai/meetingd/internal/whisper"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "meetingd.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{WhisperModel: "ggml-small-q5_1.bin"}
	chatter := llm.NewClient("http://localhost:11434", "qwen2.5:3b")
	models := whisper.NewModelManager(t.TempDir())
	svc := meeting.New(cfg, db, nil, chatter, events.NoOpEmitter{}, logging.NoOpLogger{})

	return New(cfg, svc, models, chatter, db, events.NoOpEmitter{}, logging.NoOpLogger{}), db
}

func TestDispatchUnknownCommandReturnsError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	if _, err := d.Dispatch(context.Background(), "not_a_real_command", nil); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestDispatchPassthroughCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	if out, err := d.Dispatch(ctx, "health_check", nil); err != nil || out != "ok" {
		t.Fatalf("health_check: got %q, %v", out, err)
	}
	if out, err := d.Dispatch(ctx, "get_app_version", nil); err != nil || out == "" {
		t.Fatalf("get_app_version: got %q, %v", out, err)
	}
	if out, err := d.Dispatch(ctx, "open_overlay_window", nil); err != nil || out != "ack" {
		t.Fatalf("open_overlay_window: got %q, %v", out, err)
	}
}

func TestDispatchGetSettingsReturnsConfiguredValues(t *testing.T) {
	d, _ := newTestDispatcher(t)
	out, err := d.Dispatch(context.Background(), "get_settings", nil)
	if err != nil {
		t.Fatalf("get_settings: %v", err)
	}
	var settings map[string]any
	if err := json.Unmarshal([]byte(out), &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if settings["whisper_model"] != "ggml-small-q5_1.bin" {
		t.Fatalf("got whisper_model %v", settings["whisper_model"])
	}
}

func TestDispatchNotesCRUDRoundTrips(t *testing.T) {
	d, db := newTestDispatcher(t)
	ctx := context.Background()

	meetingID, err := db.CreateMeeting("en", "vi")
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	noteID, err := db.InsertNote(meetingID, "key_point", `{"topic":"t","summary":"s","timestamp":"00:00:01"}`)
	if err != nil {
		t.Fatalf("insert note: %v", err)
	}

	getArgs, _ := json.Marshal(map[string]any{"meeting_id": meetingID})
	out, err := d.Dispatch(ctx, "get_notes", getArgs)
	if err != nil {
		t.Fatalf("get_notes: %v", err)
	}
	var records []store.Note
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("unmarshal notes: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d notes, want 1", len(records))
	}

	updateArgs, _ := json.Marshal(map[string]any{"note_id": noteID, "content": `{"topic":"t2","summary":"s2","timestamp":"00:00:02"}`})
	if _, err := d.Dispatch(ctx, "update_note", updateArgs); err != nil {
		t.Fatalf("update_note: %v", err)
	}

	deleteArgs, _ := json.Marshal(map[string]any{"note_id": noteID})
	if _, err := d.Dispatch(ctx, "delete_note", deleteArgs); err != nil {
		t.Fatalf("delete_note: %v", err)
	}

	remaining, err := db.GetNotes(meetingID, "")
	if err != nil {
		t.Fatalf("get notes after delete: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no notes after delete, got %d", len(remaining))
	}
}

func TestDispatchGenerateMemoBuildsFromPersistedNotes(t *testing.T) {
	d, db := newTestDispatcher(t)
	ctx := context.Background()

	meetingID, err := db.CreateMeeting("en", "vi")
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	if _, err := db.InsertNote(meetingID, string(notes.CategoryDecision), `{"decision":"ship it","timestamp":"00:01:00"}`); err != nil {
		t.Fatalf("insert note: %v", err)
	}

	args, _ := json.Marshal(map[string]any{"meeting_id": meetingID})
	out, err := d.Dispatch(ctx, "generate_memo", args)
	if err != nil {
		t.Fatalf("generate_memo: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty memo")
	}
}

func TestDispatchStartMeetingRejectsWithoutCapture(t *testing.T) {
	d, _ := newTestDispatcher(t)
	if _, err := d.Dispatch(context.Background(), "start_meeting", nil); err == nil {
		t.Fatal("expected error: no whisper model and no capture running")
	}
}
