package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS directory_snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		item_count INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Save(snapshot *types.Snapshot) error {
	data, err := Encode(snapshot)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO directory_snapshot (id, data, item_count, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		  data=excluded.data,
		  item_count=excluded.item_count,
		  updated_at=excluded.updated_at
	`, string(data), len(snapshot.Items), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) Load() (*types.Snapshot, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM directory_snapshot WHERE id = 1").Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	return Decode([]byte(data))
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
