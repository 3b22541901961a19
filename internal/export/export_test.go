package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/lokutor-ai/meetingd/internal/store"
)

func sampleMeeting() *store.Meeting {
	ended := time.Date(2026, 2, 10, 22, 30, 0, 0, time.UTC)
	return &store.Meeting{
		ID:          1,
		Title:       "Test Meeting",
		StartedAt:   time.Date(2026, 2, 10, 22, 0, 0, 0, time.UTC),
		EndedAt:     &ended,
		SourceLang:  "en",
		TargetLangs: "vi,ja",
		Status:      "stopped",
	}
}

func sampleTranscripts() []store.Transcript {
	return []store.Transcript{
		{ID: 1, MeetingID: 1, Text: "Hello everyone", Timestamp: "00:00:05", IsFinal: true},
	}
}

func sampleTranslations() []store.Translation {
	return []store.Translation{
		{ID: 1, TranscriptID: 1, TargetLang: "vi", TranslatedText: "Xin chao moi nguoi"},
		{ID: 2, TranscriptID: 1, TargetLang: "ja", TranslatedText: "Mina-san konnichiwa"},
	}
}

func TestRenderTXTMultiLang(t *testing.T) {
	out, err := Render(FormatTXT, sampleMeeting(), sampleTranscripts(), sampleTranslations())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Hello everyone") {
		t.Fatal("missing transcript text")
	}
	if !strings.Contains(out, "[vi] Xin chao moi nguoi") {
		t.Fatal("missing vi translation")
	}
	if !strings.Contains(out, "[ja] Mina-san konnichiwa") {
		t.Fatal("missing ja translation")
	}
}

func TestRenderMDMultiLang(t *testing.T) {
	out, err := Render(FormatMD, sampleMeeting(), sampleTranscripts(), sampleTranslations())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "# Meeting Transcript") {
		t.Fatal("missing heading")
	}
	if !strings.Contains(out, "**VI:** Xin chao") {
		t.Fatal("missing vi block")
	}
	if !strings.Contains(out, "**JA:** Mina-san") {
		t.Fatal("missing ja block")
	}
}

func TestRenderJSONMultiLang(t *testing.T) {
	out, err := Render(FormatJSON, sampleMeeting(), sampleTranscripts(), sampleTranslations())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	transcripts := parsed["transcripts"].([]any)
	translations := transcripts[0].(map[string]any)["translations"].(map[string]any)
	if translations["vi"] != "Xin chao moi nguoi" {
		t.Fatalf("got vi %v", translations["vi"])
	}
	if translations["ja"] != "Mina-san konnichiwa" {
		t.Fatalf("got ja %v", translations["ja"])
	}
}

func TestRenderTXTHandlesEmptyTranscripts(t *testing.T) {
	out, err := Render(FormatTXT, sampleMeeting(), nil, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "No transcripts") {
		t.Fatal("missing empty-state message")
	}
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	if _, err := Render(Format("yaml"), sampleMeeting(), nil, nil); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRenderFallsBackToLegacyColumnWhenNoTranslationRows(t *testing.T) {
	transcripts := []store.Transcript{
		{ID: 2, MeetingID: 1, Text: "Legacy row", Timestamp: "00:01:00", TranslatedText: "Hang cu"},
	}
	out, err := Render(FormatTXT, sampleMeeting(), transcripts, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Hang cu") {
		t.Fatal("missing legacy translation fallback")
	}
}
