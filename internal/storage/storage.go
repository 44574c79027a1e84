// Package storage persists the directory snapshot as a single document.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tomatolover555/windrose-ai/internal/config"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

// ErrCorrupt is returned by Load when the stored document cannot be decoded.
var ErrCorrupt = errors.New("corrupt snapshot")

// Storage implementations return (nil, nil) from Load when nothing has been
// saved yet.
type Storage interface {
	Save(snapshot *types.Snapshot) error
	Load() (*types.Snapshot, error)
	Close() error
}

func NewStorage(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "file":
		return NewFileStorage(cfg.Path)
	case "sqlite":
		return NewSQLiteStorage(cfg.Path)
	case "redis":
		return NewRedisStorage(cfg.Path, cfg.Key)
	case "postgres":
		return NewPostgresStorage(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// Encode serializes a snapshot deterministically: items sorted by domain,
// two-space indentation.
func Encode(snapshot *types.Snapshot) ([]byte, error) {
	sorted := *snapshot
	sorted.Items = make([]types.DirectoryItem, len(snapshot.Items))
	copy(sorted.Items, snapshot.Items)
	sort.SliceStable(sorted.Items, func(i, j int) bool { return sorted.Items[i].Domain < sorted.Items[j].Domain })

	data, err := json.MarshalIndent(&sorted, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a stored snapshot. Missing item lists decode as empty.
func Decode(data []byte) (*types.Snapshot, error) {
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap.Items == nil {
		snap.Items = []types.DirectoryItem{}
	}
	return &snap, nil
}

// FileStorage stores the snapshot as a JSON file
type FileStorage struct {
	path string
}

func NewFileStorage(path string) (*FileStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	return &FileStorage{path: path}, nil
}

func (f *FileStorage) Save(snapshot *types.Snapshot) error {
	data, err := Encode(snapshot)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("atomic rename: %w", err)
	}

	return nil
}

func (f *FileStorage) Load() (*types.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // File doesn't exist yet
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	return Decode(data)
}

func (f *FileStorage) Close() error {
	return nil
}
