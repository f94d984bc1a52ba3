package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteSnapshotRepository хранит снапшот состояния одной строкой в SQLite.
// Локальный файл играет роль браузерного storage для консольного клиента.
type SQLiteSnapshotRepository struct {
	db *sql.DB
}

// Compile-time check
var _ SnapshotRepository = (*SQLiteSnapshotRepository)(nil)

// NewSQLiteSnapshotRepository opens (or creates) the snapshot database.
func NewSQLiteSnapshotRepository(dataSourceName string) (*SQLiteSnapshotRepository, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping snapshot database: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS state_snapshot (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        data TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );`
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}

	return &SQLiteSnapshotRepository{db: db}, nil
}

func (r *SQLiteSnapshotRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteSnapshotRepository) Load() (*State, error) {
	var data []byte
	err := r.db.QueryRow(`SELECT data FROM state_snapshot WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeState(data)
}

func (r *SQLiteSnapshotRepository) Save(st *State) error {
	data, err := encodeState(st)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
        INSERT INTO state_snapshot (id, data, updated_at) VALUES (1, ?, ?)
        ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func encodeState(st *State) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	st.normalize()
	return &st, nil
}
