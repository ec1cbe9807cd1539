package store

import (
	"database/sql"
	"time"
)

// Recognition is one displayed text change within a run.
type Recognition struct {
	ID        int64
	SessionID string
	Text      string
	CreatedAt time.Time
}

// RecognitionRepository records recognized text.
type RecognitionRepository struct {
	db *sql.DB
}

// Recognitions returns the recognition repository for this store.
func (s *Store) Recognitions() *RecognitionRepository {
	return &RecognitionRepository{db: s.db}
}

// Append records text for a run.
func (r *RecognitionRepository) Append(sessionID, text string, at time.Time) (*Recognition, error) {
	rec := &Recognition{SessionID: sessionID, Text: text, CreatedAt: at.UTC()}

	result, err := r.db.Exec(
		`INSERT INTO recognitions (session_id, text, created_at) VALUES (?, ?, ?)`,
		rec.SessionID, rec.Text, rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListBySession returns the text changes of a run in the order they happened.
func (r *RecognitionRepository) ListBySession(sessionID string) ([]*Recognition, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, text, created_at FROM recognitions
		 WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recognition
	for rows.Next() {
		rec := &Recognition{}
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Text, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}
