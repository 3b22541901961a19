package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// InsertTranscript inserts a finalized transcript row. Timestamps are
// stored as HH:MM:SS, formatted from tsMs here by formatHMS (the same
// HH:MM:SS shape as notes.formatTimestamp).
func (s *Store) InsertTranscript(meetingID int64, text, segmentID string, tsMs int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO transcripts (meeting_id, text, segment_id, timestamp, is_final) VALUES (?, ?, ?, ?, 1)`,
		meetingID, text, segmentID, formatHMS(tsMs),
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert transcript: %w", err)
	}
	return res.LastInsertId()
}

// GetTranscriptIDBySegment looks up the transcript row id for a given
// meeting+segment pair, for the translation fan-out to attach to.
func (s *Store) GetTranscriptIDBySegment(meetingID int64, segmentID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRow(
		`SELECT id FROM transcripts WHERE meeting_id = ? AND segment_id = ?`,
		meetingID, segmentID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("store: lookup transcript by segment: %w", err)
	}
	return id, true, nil
}

// GetMeetingTranscripts returns all finalized transcripts for a meeting,
// oldest first.
func (s *Store) GetMeetingTranscripts(meetingID int64) ([]Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, meeting_id, speaker, text, translated_text, timestamp, is_final, segment_id, created_at
		 FROM transcripts WHERE meeting_id = ? AND is_final = 1 ORDER BY id ASC`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: get meeting transcripts: %w", err)
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		var t Transcript
		var speaker, translated sql.NullString
		var isFinal int
		if err := rows.Scan(&t.ID, &t.MeetingID, &speaker, &t.Text, &translated, &t.Timestamp, &isFinal, &t.SegmentID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan transcript: %w", err)
		}
		t.Speaker = speaker.String
		t.TranslatedText = translated.String
		t.IsFinal = isFinal != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func formatHMS(ms int64) string {
	totalSecs := ms / 1000
	h := totalSecs / 3600
	m := (totalSecs % 3600) / 60
	sec := totalSecs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}
