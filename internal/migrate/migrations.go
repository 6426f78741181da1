package migrate

import (
	"database/sql"
	"fmt"
)

type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "001_init",
		UpSQL: `
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	profile_type TEXT NOT NULL CHECK (profile_type IN ('individual','business','admin')),
	profile_completed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE missions (
	id TEXT PRIMARY KEY,
	establishment_id TEXT NOT NULL REFERENCES users(id),
	spy_id TEXT NOT NULL REFERENCES users(id),
	ticket_value REAL NOT NULL CHECK (ticket_value >= 0),
	status TEXT NOT NULL CHECK (status IN ('waiting','accepted','in_progress','completed','rejected')),
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE questions (
	id TEXT PRIMARY KEY,
	mission_id TEXT NOT NULL REFERENCES missions(id),
	position INTEGER NOT NULL,
	category TEXT NOT NULL,
	text TEXT NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('rating','boolean','text','numeric','upload')),
	min_value INTEGER,
	max_value INTEGER,
	UNIQUE (mission_id, position)
);

CREATE TABLE answers (
	mission_id TEXT NOT NULL REFERENCES missions(id),
	question_id TEXT NOT NULL REFERENCES questions(id),
	user_id TEXT NOT NULL REFERENCES users(id),
	value_json TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (mission_id, question_id)
);

CREATE TABLE events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TEXT NOT NULL,
	type TEXT NOT NULL,
	mission_id TEXT,
	actor_id TEXT NOT NULL,
	payload_json TEXT NOT NULL
);

CREATE INDEX idx_missions_spy_status ON missions(spy_id, status);
CREATE INDEX idx_questions_mission ON questions(mission_id, position);
`,
	},
}

// Migrate applies pending migrations in order.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL);`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var currentVersion int
	err = tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&currentVersion)
	if err == sql.ErrNoRows {
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema_version: %w", err)
		}
		currentVersion = 0
	} else if err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}
		if _, err := tx.Exec(m.UpSQL); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(`UPDATE schema_version SET version=?`, m.Version); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
		currentVersion = m.Version
	}
	return tx.Commit()
}
