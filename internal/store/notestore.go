package store

import (
	"fmt"

	"github.com/lokutor-ai/meetingd/internal/notes"
)

// InsertNote inserts a single note row and returns its id.
func (s *Store) InsertNote(meetingID int64, noteType, content string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO notes (meeting_id, note_type, content) VALUES (?, ?, ?)`,
		meetingID, noteType, content,
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert note: %w", err)
	}
	return res.LastInsertId()
}

// InsertNotesBatch inserts every record under one transaction and returns
// their ids in insertion order. Satisfies notes.Store.
func (s *Store) InsertNotesBatch(meetingID int64, items []notes.NoteRecord) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin notes batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO notes (meeting_id, note_type, content) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("store: prepare notes batch: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		res, err := stmt.Exec(meetingID, string(it.Category), it.Content)
		if err != nil {
			return nil, fmt.Errorf("store: insert note batch item: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("store: note batch last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit notes batch: %w", err)
	}
	return ids, nil
}

// GetNotes returns notes for a meeting, optionally filtered by noteType
// ("" means no filter), ordered by created_at ascending.
func (s *Store) GetNotes(meetingID int64, noteType string) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, meeting_id, note_type, content, created_at FROM notes WHERE meeting_id = ?`
	args := []any{meetingID}
	if noteType != "" {
		query += ` AND note_type = ?`
		args = append(args, noteType)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.MeetingID, &n.NoteType, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpdateNote replaces a note's content by id.
func (s *Store) UpdateNote(id int64, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE notes SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return fmt.Errorf("store: update note %d: %w", id, err)
	}
	return nil
}

// DeleteNote removes a note by id.
func (s *Store) DeleteNote(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note %d: %w", id, err)
	}
	return nil
}
