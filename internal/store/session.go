package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RunState is the journaled outcome of a capture run.
type RunState string

const (
	RunStreaming RunState = "streaming"
	RunStopped   RunState = "stopped"
	RunError     RunState = "error"
)

// Run is one journaled capture session.
type Run struct {
	ID        string
	StartedAt time.Time
	StoppedAt *time.Time
	State     RunState
	Error     string
	FinalText string
}

// SessionRepository records capture runs.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the capture session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Begin opens a new run in the streaming state.
func (r *SessionRepository) Begin(startedAt time.Time) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		StartedAt: startedAt.UTC(),
		State:     RunStreaming,
	}

	_, err := r.db.Exec(
		`INSERT INTO capture_sessions (id, started_at, state) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt, string(run.State),
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Finish closes a run that was stopped normally.
func (r *SessionRepository) Finish(id string, stoppedAt time.Time, finalText string) error {
	return r.close(id, stoppedAt, RunStopped, "", finalText)
}

// Fail closes a run that ended in an error.
func (r *SessionRepository) Fail(id string, stoppedAt time.Time, reason string, finalText string) error {
	return r.close(id, stoppedAt, RunError, reason, finalText)
}

func (r *SessionRepository) close(id string, stoppedAt time.Time, state RunState, reason, finalText string) error {
	result, err := r.db.Exec(
		`UPDATE capture_sessions SET stopped_at = ?, state = ?, error = ?, final_text = ?
		 WHERE id = ?`,
		stoppedAt.UTC(), string(state), reason, finalText, id,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (r *SessionRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, started_at, stopped_at, state, error, final_text
		 FROM capture_sessions WHERE id = ?`,
		id,
	)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first. limit <= 0 returns all of them.
func (r *SessionRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, started_at, stopped_at, state, error, final_text
		 FROM capture_sessions ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var state string
	var stoppedAt sql.NullTime

	if err := row.Scan(&run.ID, &run.StartedAt, &stoppedAt, &state, &run.Error, &run.FinalText); err != nil {
		return nil, err
	}

	run.State = RunState(state)
	if stoppedAt.Valid {
		t := stoppedAt.Time
		run.StoppedAt = &t
	}
	return run, nil
}
