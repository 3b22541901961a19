package store

import (
	"database/sql"
	"fmt"
)

// CreateMeeting inserts a new meeting row with status "recording" and
// returns its id.
func (s *Store) CreateMeeting(sourceLang, targetLangsCSV string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO meetings (source_lang, target_langs, status) VALUES (?, ?, 'recording')`,
		sourceLang, targetLangsCSV,
	)
	if err != nil {
		return 0, fmt.Errorf("store: create meeting: %w", err)
	}
	return res.LastInsertId()
}

// EndMeeting stamps ended_at and sets status to "stopped".
func (s *Store) EndMeeting(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE meetings SET status = 'stopped', ended_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("store: end meeting %d: %w", id, err)
	}
	return nil
}

// GetMeeting returns one meeting by id.
func (s *Store) GetMeeting(id int64) (*Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m Meeting
	var endedAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, title, started_at, ended_at, source_lang, target_langs, status, created_at FROM meetings WHERE id = ?`,
		id,
	).Scan(&m.ID, &m.Title, &m.StartedAt, &endedAt, &m.SourceLang, &m.TargetLangs, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: get meeting %d: %w", id, err)
	}
	if endedAt.Valid {
		m.EndedAt = &endedAt.Time
	}
	return &m, nil
}
