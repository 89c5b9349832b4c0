package checkpoint

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/unixpickle/dnc"
)

// ErrNotFound is returned when no checkpoint matches a lookup.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint describes a stored machine.
type Checkpoint struct {
	ID            string
	Name          string
	Config        dnc.Config
	LayoutVersion int
	Size          int
	CreatedAt     int64 // unix millis
}

// Save serializes m and stores it under name.
// Several checkpoints may share a name; LoadLatest picks the newest.
func (db *DB) Save(name string, m *dnc.Machine) (*Checkpoint, error) {
	if name == "" {
		return nil, errors.New("checkpoint name required")
	}
	data, err := m.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize machine: %w", err)
	}

	cp := &Checkpoint{
		ID:            uuid.NewString(),
		Name:          name,
		Config:        m.Config,
		LayoutVersion: dnc.LayoutVersion,
		Size:          len(data),
		CreatedAt:     time.Now().UnixMilli(),
	}
	_, err = db.Exec(`
		INSERT INTO checkpoints (id, name, memory_size, word_size, read_heads, layout_version, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, cp.ID, cp.Name, cp.Config.MemorySize, cp.Config.WordSize, cp.Config.ReadHeads,
		cp.LayoutVersion, data, cp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert checkpoint: %w", err)
	}
	log.Printf("checkpoint: saved %s as %s (%d bytes)", name, cp.ID, cp.Size)
	return cp, nil
}

// Load decodes the checkpoint with the given id.
func (db *DB) Load(id string) (*dnc.Machine, *Checkpoint, error) {
	return db.loadRow(db.QueryRow(`
		SELECT id, name, memory_size, word_size, read_heads, layout_version, data, created_at
		FROM checkpoints WHERE id = ?
	`, id))
}

// LoadLatest decodes the newest checkpoint with the given name.
func (db *DB) LoadLatest(name string) (*dnc.Machine, *Checkpoint, error) {
	return db.loadRow(db.QueryRow(`
		SELECT id, name, memory_size, word_size, read_heads, layout_version, data, created_at
		FROM checkpoints WHERE name = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, name))
}

func (db *DB) loadRow(row *sql.Row) (*dnc.Machine, *Checkpoint, error) {
	var cp Checkpoint
	var data []byte
	err := row.Scan(&cp.ID, &cp.Name, &cp.Config.MemorySize, &cp.Config.WordSize,
		&cp.Config.ReadHeads, &cp.LayoutVersion, &data, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get checkpoint: %w", err)
	}
	cp.Size = len(data)

	if cp.LayoutVersion != dnc.LayoutVersion {
		return nil, nil, fmt.Errorf("checkpoint %s: interface layout v%d, want v%d",
			cp.ID, cp.LayoutVersion, dnc.LayoutVersion)
	}
	m, err := dnc.DeserializeMachine(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode checkpoint %s: %w", cp.ID, err)
	}
	if m.Config != cp.Config {
		return nil, nil, fmt.Errorf("checkpoint %s: stored geometry %v does not match payload %v",
			cp.ID, cp.Config, m.Config)
	}
	return m, &cp, nil
}

// List returns all checkpoints, newest first, without their payloads.
func (db *DB) List() ([]Checkpoint, error) {
	rows, err := db.Query(`
		SELECT id, name, memory_size, word_size, read_heads, layout_version, length(data), created_at
		FROM checkpoints ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var res []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.ID, &cp.Name, &cp.Config.MemorySize, &cp.Config.WordSize,
			&cp.Config.ReadHeads, &cp.LayoutVersion, &cp.Size, &cp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		res = append(res, cp)
	}
	return res, rows.Err()
}

// Delete removes a checkpoint.
func (db *DB) Delete(id string) error {
	result, err := db.Exec("DELETE FROM checkpoints WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
