// Package export renders a meeting's transcripts and translations to the
// three formats the UI's export_transcript command supports.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lokutor-ai/meetingd/internal/store"
)

// Format is one supported output format name.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatMD   Format = "md"
	FormatJSON Format = "json"
)

// Render builds the export document for a meeting in the given format.
// translations is every translation row for the meeting's transcripts,
// in any order; Render groups them by transcript id itself.
func Render(format Format, meeting *store.Meeting, transcripts []store.Transcript, translations []store.Translation) (string, error) {
	byTranscript := make(map[int64][]store.Translation, len(translations))
	for _, tr := range translations {
		byTranscript[tr.TranscriptID] = append(byTranscript[tr.TranscriptID], tr)
	}

	switch format {
	case FormatTXT:
		return renderTXT(meeting, transcripts, byTranscript), nil
	case FormatMD:
		return renderMD(meeting, transcripts, byTranscript), nil
	case FormatJSON:
		return renderJSON(meeting, transcripts, byTranscript)
	default:
		return "", fmt.Errorf("export: unsupported format %q", format)
	}
}

func renderTXT(meeting *store.Meeting, transcripts []store.Transcript, byTranscript map[int64][]store.Translation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting: %s\n", meeting.Title)
	fmt.Fprintf(&b, "Date: %s\n", meeting.StartedAt.Format("2006-01-02 15:04:05"))
	if meeting.EndedAt != nil {
		fmt.Fprintf(&b, "Ended: %s\n", meeting.EndedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "Language: %s -> %s\n", meeting.SourceLang, meeting.TargetLangs)
	b.WriteString("---\n\n")

	if len(transcripts) == 0 {
		b.WriteString("(No transcripts recorded)\n")
		return b.String()
	}

	for _, t := range transcripts {
		fmt.Fprintf(&b, "[%s] %s\n", t.Timestamp, t.Text)
		if trs, ok := byTranscript[t.ID]; ok && len(trs) > 0 {
			for _, tr := range trs {
				fmt.Fprintf(&b, "    [%s] %s\n", tr.TargetLang, tr.TranslatedText)
			}
		} else if t.TranslatedText != "" {
			fmt.Fprintf(&b, "      %s\n", t.TranslatedText)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderMD(meeting *store.Meeting, transcripts []store.Transcript, byTranscript map[int64][]store.Translation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Meeting Transcript: %s\n\n", meeting.Title)
	fmt.Fprintf(&b, "**Date:** %s", meeting.StartedAt.Format("2006-01-02 15:04:05"))
	if meeting.EndedAt != nil {
		fmt.Fprintf(&b, " - %s", meeting.EndedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "\n**Languages:** %s -> %s\n\n---\n\n", meeting.SourceLang, meeting.TargetLangs)

	if len(transcripts) == 0 {
		b.WriteString("*No transcripts recorded*\n")
		return b.String()
	}

	for _, t := range transcripts {
		fmt.Fprintf(&b, "**[%s]** %s\n", t.Timestamp, t.Text)
		if trs, ok := byTranscript[t.ID]; ok && len(trs) > 0 {
			for _, tr := range trs {
				fmt.Fprintf(&b, "> **%s:** %s\n", strings.ToUpper(tr.TargetLang), tr.TranslatedText)
			}
		} else if t.TranslatedText != "" {
			fmt.Fprintf(&b, "> %s\n", t.TranslatedText)
		}
		b.WriteString("\n")
	}
	return b.String()
}

type jsonMeeting struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	StartedAt   string  `json:"started_at"`
	EndedAt     *string `json:"ended_at"`
	SourceLang  string  `json:"source_lang"`
	TargetLangs string  `json:"target_langs"`
	Status      string  `json:"status"`
}

type jsonTranscript struct {
	Timestamp      string            `json:"timestamp"`
	Text           string            `json:"text"`
	Translations   map[string]string `json:"translations"`
	TranslatedText string            `json:"translated_text"`
	Speaker        string            `json:"speaker"`
}

func renderJSON(meeting *store.Meeting, transcripts []store.Transcript, byTranscript map[int64][]store.Translation) (string, error) {
	jm := jsonMeeting{
		ID:          meeting.ID,
		Title:       meeting.Title,
		StartedAt:   meeting.StartedAt.Format("2006-01-02 15:04:05"),
		SourceLang:  meeting.SourceLang,
		TargetLangs: meeting.TargetLangs,
		Status:      meeting.Status,
	}
	if meeting.EndedAt != nil {
		s := meeting.EndedAt.Format("2006-01-02 15:04:05")
		jm.EndedAt = &s
	}

	jts := make([]jsonTranscript, 0, len(transcripts))
	for _, t := range transcripts {
		trs := make(map[string]string)
		for _, tr := range byTranscript[t.ID] {
			trs[tr.TargetLang] = tr.TranslatedText
		}
		jts = append(jts, jsonTranscript{
			Timestamp:      t.Timestamp,
			Text:           t.Text,
			Translations:   trs,
			TranslatedText: t.TranslatedText,
			Speaker:        t.Speaker,
		})
	}

	out, err := json.MarshalIndent(map[string]any{
		"meeting":     jm,
		"transcripts": jts,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: marshal json: %w", err)
	}
	return string(out), nil
}
