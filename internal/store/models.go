package store

import "time"

// Meeting is one row of the meetings table.
type Meeting struct {
	ID          int64
	Title       string
	StartedAt   time.Time
	EndedAt     *time.Time
	SourceLang  string
	TargetLangs string // comma-separated
	Status      string // idle | recording | paused | stopped
	CreatedAt   time.Time
}

// Transcript is one finalized STT segment.
type Transcript struct {
	ID             int64
	MeetingID      int64
	Speaker        string
	Text           string
	TranslatedText string // legacy single-language column, kept for export fallback
	Timestamp      string // HH:MM:SS
	IsFinal        bool
	SegmentID      string
	CreatedAt      time.Time
}

// Translation is one per-language translation of a transcript row.
type Translation struct {
	ID             int64
	TranscriptID   int64
	TargetLang     string
	TranslatedText string
	CreatedAt      time.Time
}

// Note is one persisted note item.
type Note struct {
	ID        int64
	MeetingID int64
	NoteType  string // key_point | decision | risk | action_item
	Content   string
	CreatedAt time.Time
}
