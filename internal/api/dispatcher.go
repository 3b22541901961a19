// Package api maps the named inbound WebSocket commands onto the meeting
// service's, model manager's and Ollama client's public methods, per the
// "success string / error string" contract transport.Dispatcher expects.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lokutor-ai/meetingd/internal/audio"
	"github.com/lokutor-ai/meetingd/internal/config"
	"github.com/lokutor-ai/meetingd/internal/events"
	"github.com/lokutor-ai/meetingd/internal/export"
	"github.com/lokutor-ai/meetingd/internal/llm"
	"github.com/lokutor-ai/meetingd/internal/logging"
	"github.com/lokutor-ai/meetingd/internal/meeting"
	"github.com/lokutor-ai/meetingd/internal/metrics"
	"github.com/lokutor-ai/meetingd/internal/store"
	"github.com/lokutor-ai/meetingd/internal/whisper"
)

// appVersion is stamped at build time in a full release; fixed here since
// this service has no build-time ldflags wiring.
const appVersion = "0.1.0"

// Dispatcher implements transport.Dispatcher, the one command surface
// every connected UI client drives the backend through.
type Dispatcher struct {
	cfg     config.Config
	svc     *meeting.Service
	models  *whisper.ModelManager
	chatter *llm.Client
	store   *store.Store
	emitter events.Emitter
	logger  logging.Logger
}

// New builds a Dispatcher wired to the running service's components.
func New(cfg config.Config, svc *meeting.Service, models *whisper.ModelManager, chatter *llm.Client, st *store.Store, emitter events.Emitter, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if emitter == nil {
		emitter = events.NoOpEmitter{}
	}
	return &Dispatcher{cfg: cfg, svc: svc, models: models, chatter: chatter, store: st, emitter: emitter, logger: logger}
}

// Dispatch routes one command by name. Unknown commands return an error
// string rather than panicking, matching the original surface's behavior
// for a typo'd or future command name.
func (d *Dispatcher) Dispatch(ctx context.Context, command string, args json.RawMessage) (string, error) {
	switch command {
	case "list_audio_devices":
		return d.listAudioDevices()
	case "start_audio_capture":
		return d.svc.StartAudioCapture()
	case "stop_audio_capture":
		return d.svc.StopAudioCapture()
	case "check_model_status":
		return d.checkModelStatus()
	case "download_model":
		return d.downloadModel(ctx)
	case "start_meeting":
		return d.startMeeting(args)
	case "stop_meeting":
		return d.svc.StopMeeting()
	case "ollama_health_check":
		return d.ollamaHealthCheck(ctx)
	case "translate_text":
		return d.translateText(args)
	case "list_ollama_models":
		return d.listOllamaModels(ctx)
	case "pull_ollama_model":
		return d.pullOllamaModel(ctx, args)
	case "delete_ollama_model":
		return d.deleteOllamaModel(ctx, args)
	case "export_transcript":
		return d.exportTranscript(args)
	case "get_notes":
		return d.getNotes(args)
	case "update_note":
		return d.updateNote(args)
	case "delete_note":
		return d.deleteNote(args)
	case "generate_memo":
		return d.generateMemo(args)
	case "export_memo":
		return d.exportMemo(args)
	case "get_app_version":
		return appVersion, nil
	case "health_check":
		return "ok", nil
	case "get_settings":
		return d.getSettings()
	case "open_overlay_window", "close_overlay_window":
		return "ack", nil
	default:
		return "", fmt.Errorf("unknown command: %s", command)
	}
}

func (d *Dispatcher) listAudioDevices() (string, error) {
	devices, err := audio.ListDevices()
	if err != nil {
		return "", fmt.Errorf("list audio devices: %w", err)
	}
	out, err := json.Marshal(devices)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (d *Dispatcher) checkModelStatus() (string, error) {
	present, size, err := d.models.Status(d.cfg.WhisperModel)
	if err != nil {
		return "", fmt.Errorf("check model status: %w", err)
	}
	out, err := json.Marshal(map[string]any{
		"model":   d.cfg.WhisperModel,
		"present": present,
		"size":    size,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (d *Dispatcher) downloadModel(ctx context.Context) (string, error) {
	var reported int64
	err := d.models.Download(ctx, d.cfg.WhisperModel, func(downloaded, total int64) {
		metrics.ModelDownloadBytes.WithLabelValues(d.cfg.WhisperModel).Add(float64(downloaded - reported))
		reported = downloaded
		d.emitter.Emit(events.Event{
			Type: events.TypeModelDownloadProgress,
			Data: events.ModelDownloadProgress{Model: d.cfg.WhisperModel, Downloaded: downloaded, Total: total},
		})
	})
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	return "model downloaded", nil
}

type startMeetingArgs struct {
	SrcLang     string   `json:"src_lang"`
	TargetLangs []string `json:"target_langs"`
}

func (d *Dispatcher) startMeeting(args json.RawMessage) (string, error) {
	var a startMeetingArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return "", fmt.Errorf("parse start_meeting args: %w", err)
		}
	}
	return d.svc.StartMeeting(a.SrcLang, a.TargetLangs)
}

func (d *Dispatcher) ollamaHealthCheck(ctx context.Context) (string, error) {
	if d.chatter.HealthCheck(ctx) {
		return "ok", nil
	}
	return "", fmt.Errorf("ollama health check failed")
}

type translateTextArgs struct {
	Text        string   `json:"text"`
	TargetLangs []string `json:"target_langs"`
	SegmentID   string   `json:"segment_id"`
}

func (d *Dispatcher) translateText(args json.RawMessage) (string, error) {
	var a translateTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse translate_text args: %w", err)
	}
	if err := d.svc.FanOut().Translate(a.SegmentID, a.Text, a.TargetLangs); err != nil {
		return "", err
	}
	return "translation started", nil
}

func (d *Dispatcher) listOllamaModels(ctx context.Context) (string, error) {
	models, err := d.chatter.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("list ollama models: %w", err)
	}
	out, err := json.Marshal(models)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type modelNameArgs struct {
	Name string `json:"name"`
}

func (d *Dispatcher) pullOllamaModel(ctx context.Context, args json.RawMessage) (string, error) {
	var a modelNameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse pull_ollama_model args: %w", err)
	}
	err := d.chatter.PullModel(ctx, a.Name, func(p llm.PullProgress) {
		d.emitter.Emit(events.Event{
			Type: events.TypeOllamaPullProgress,
			Data: events.OllamaPullProgress{Model: a.Name, Status: p.Status, Completed: p.Completed, Total: p.Total},
		})
	})
	if err != nil {
		return "", fmt.Errorf("pull ollama model: %w", err)
	}
	return "model pulled", nil
}

func (d *Dispatcher) deleteOllamaModel(ctx context.Context, args json.RawMessage) (string, error) {
	var a modelNameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse delete_ollama_model args: %w", err)
	}
	if err := d.chatter.DeleteModel(ctx, a.Name); err != nil {
		return "", fmt.Errorf("delete ollama model: %w", err)
	}
	return "model deleted", nil
}

type exportTranscriptArgs struct {
	MeetingID int64  `json:"meeting_id"`
	Format    string `json:"format"`
	Path      string `json:"path"`
}

func (d *Dispatcher) exportTranscript(args json.RawMessage) (string, error) {
	var a exportTranscriptArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse export_transcript args: %w", err)
	}

	meetingRow, err := d.store.GetMeeting(a.MeetingID)
	if err != nil {
		return "", fmt.Errorf("load meeting: %w", err)
	}
	transcripts, err := d.store.GetMeetingTranscripts(a.MeetingID)
	if err != nil {
		return "", fmt.Errorf("load transcripts: %w", err)
	}
	translations, err := d.store.GetMeetingTranslations(a.MeetingID)
	if err != nil {
		return "", fmt.Errorf("load translations: %w", err)
	}

	content, err := export.Render(export.Format(a.Format), meetingRow, transcripts, translations)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(a.Path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return a.Path, nil
}

type getNotesArgs struct {
	MeetingID int64  `json:"meeting_id"`
	NoteType  string `json:"note_type"`
}

func (d *Dispatcher) getNotes(args json.RawMessage) (string, error) {
	var a getNotesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse get_notes args: %w", err)
	}
	records, err := d.store.GetNotes(a.MeetingID, a.NoteType)
	if err != nil {
		return "", fmt.Errorf("get notes: %w", err)
	}
	out, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type updateNoteArgs struct {
	NoteID  int64  `json:"note_id"`
	Content string `json:"content"`
}

func (d *Dispatcher) updateNote(args json.RawMessage) (string, error) {
	var a updateNoteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse update_note args: %w", err)
	}
	if err := d.store.UpdateNote(a.NoteID, a.Content); err != nil {
		return "", fmt.Errorf("update note: %w", err)
	}
	return "note updated", nil
}

type deleteNoteArgs struct {
	NoteID int64 `json:"note_id"`
}

func (d *Dispatcher) deleteNote(args json.RawMessage) (string, error) {
	var a deleteNoteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse delete_note args: %w", err)
	}
	if err := d.store.DeleteNote(a.NoteID); err != nil {
		return "", fmt.Errorf("delete note: %w", err)
	}
	return "note deleted", nil
}

type meetingIDArgs struct {
	MeetingID int64 `json:"meeting_id"`
}

func (d *Dispatcher) generateMemo(args json.RawMessage) (string, error) {
	var a meetingIDArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse generate_memo args: %w", err)
	}
	return d.svc.GenerateMemo(a.MeetingID)
}

type exportMemoArgs struct {
	MeetingID int64  `json:"meeting_id"`
	Path      string `json:"path"`
}

func (d *Dispatcher) exportMemo(args json.RawMessage) (string, error) {
	var a exportMemoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parse export_memo args: %w", err)
	}
	return d.svc.ExportMemo(a.MeetingID, a.Path)
}

func (d *Dispatcher) getSettings() (string, error) {
	out, err := json.Marshal(map[string]any{
		"ollama_url":     d.cfg.OllamaURL,
		"ollama_model":   d.cfg.OllamaModel,
		"whisper_model":  d.cfg.WhisperModel,
		"whisper_lang":   d.cfg.WhisperLanguage,
		"listen_addr":    d.cfg.ListenAddr,
		"db_path":        d.cfg.DBPath,
		"translation_cap": d.cfg.TranslationCap,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
