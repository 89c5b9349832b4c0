package checkpoint

import "fmt"

// schema lists the statements which take the database from
// version i to version i+1.
// The applied version is kept in PRAGMA user_version.
var schema = []string{
	`CREATE TABLE checkpoints (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		memory_size    INTEGER NOT NULL CHECK (memory_size > 0),
		word_size      INTEGER NOT NULL CHECK (word_size > 0),
		read_heads     INTEGER NOT NULL CHECK (read_heads > 0),
		layout_version INTEGER NOT NULL,
		data           BLOB NOT NULL,
		created_at     INTEGER NOT NULL
	);
	CREATE INDEX idx_checkpoints_name ON checkpoints(name, created_at DESC);`,
}

func (db *DB) migrate() error {
	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	if current > len(schema) {
		return fmt.Errorf("database schema v%d is newer than supported v%d", current, len(schema))
	}
	for v := current; v < len(schema); v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(schema[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
	}
	return nil
}

// SchemaVersion returns the number of applied schema steps.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	err := db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}
