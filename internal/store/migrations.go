package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Workouts table - one row per finished workout session
		`CREATE TABLE IF NOT EXISTS workouts (
			id TEXT PRIMARY KEY,
			timestamp_ms INTEGER NOT NULL,
			date TEXT NOT NULL,
			exercise_type TEXT NOT NULL,
			reps INTEGER NOT NULL DEFAULT 0 CHECK(reps >= 0),
			duration_minutes REAL NOT NULL DEFAULT 0,
			form_score REAL NOT NULL DEFAULT 0,
			calories_estimate REAL NOT NULL DEFAULT 0
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for the time window and per-exercise queries
		`CREATE INDEX IF NOT EXISTS idx_workouts_timestamp ON workouts(timestamp_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_exercise ON workouts(exercise_type, timestamp_ms)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
