package store

import "fmt"

// InsertTranslation upserts a translation row for (transcriptID, targetLang).
func (s *Store) InsertTranslation(transcriptID int64, targetLang, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO translations (transcript_id, target_lang, translated_text) VALUES (?, ?, ?)
		 ON CONFLICT(transcript_id, target_lang) DO UPDATE SET translated_text = excluded.translated_text`,
		transcriptID, targetLang, text,
	)
	if err != nil {
		return fmt.Errorf("store: upsert translation: %w", err)
	}
	return nil
}

// GetMeetingTranslations returns all translations for a meeting's
// transcripts, joined and ordered by transcript_id then target_lang.
func (s *Store) GetMeetingTranslations(meetingID int64) ([]Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT tr.id, tr.transcript_id, tr.target_lang, tr.translated_text, tr.created_at
		 FROM translations tr
		 JOIN transcripts t ON t.id = tr.transcript_id
		 WHERE t.meeting_id = ?
		 ORDER BY tr.transcript_id ASC, tr.target_lang ASC`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: get meeting translations: %w", err)
	}
	defer rows.Close()

	var out []Translation
	for rows.Next() {
		var tr Translation
		if err := rows.Scan(&tr.ID, &tr.TranscriptID, &tr.TargetLang, &tr.TranslatedText, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan translation: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
