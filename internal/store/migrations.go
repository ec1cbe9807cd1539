package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per camera run, from Start to Stop or failure
		`CREATE TABLE IF NOT EXISTS capture_sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			stopped_at DATETIME,
			state TEXT NOT NULL CHECK(state IN ('streaming', 'stopped', 'error')),
			error TEXT NOT NULL DEFAULT '',
			final_text TEXT NOT NULL DEFAULT ''
		)`,

		// Every text change displayed during a run
		`CREATE TABLE IF NOT EXISTS recognitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES capture_sessions(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_capture_sessions_started_at ON capture_sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recognitions_session_id ON recognitions(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
