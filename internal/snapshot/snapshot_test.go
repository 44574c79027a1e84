package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomatolover555/windrose-ai/internal/storage"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

type failingStorage struct {
	loadErr error
	saveErr error
	saved   int
}

func (f *failingStorage) Save(*types.Snapshot) error {
	f.saved++
	return f.saveErr
}

func (f *failingStorage) Load() (*types.Snapshot, error) { return nil, f.loadErr }

func (f *failingStorage) Close() error { return nil }

func TestLoadMissingStartsEmpty(t *testing.T) {
	store, err := storage.NewFileStorage(filepath.Join(t.TempDir(), "directory.json"))
	require.NoError(t, err)

	m := NewManager(store)
	snap := m.Load()
	assert.NotNil(t, snap.Items)
	assert.Empty(t, snap.Items)
	assert.Same(t, snap, m.Current())
}

func TestLoadCorruptStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{{"), 0644))
	store, err := storage.NewFileStorage(path)
	require.NoError(t, err)

	snap := NewManager(store).Load()
	assert.Empty(t, snap.Items)
}

func TestLoadErrorStartsEmpty(t *testing.T) {
	m := NewManager(&failingStorage{loadErr: errors.New("connection refused")})
	assert.Empty(t, m.Load().Items)
}

func TestCommitPersistsAndSwaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	store, err := storage.NewFileStorage(path)
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	snap := &types.Snapshot{UpdatedAt: now, Items: []types.DirectoryItem{types.NewItem("a.com", now)}}

	m := NewManager(store)
	require.NoError(t, m.Commit(snap))
	assert.Same(t, snap, m.Current())

	item, ok := m.Find("a.com")
	require.True(t, ok)
	assert.Equal(t, "a.com", item.Domain)

	reloaded := NewManager(store).Load()
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "a.com", reloaded.Items[0].Domain)
}

func TestCommitSaveFailureStillSwaps(t *testing.T) {
	store := &failingStorage{saveErr: errors.New("disk full")}
	m := NewManager(store)

	snap := types.EmptySnapshot(time.Now())
	assert.Error(t, m.Commit(snap))
	assert.Same(t, snap, m.Current())
	assert.Equal(t, 1, store.saved)
}

func TestRunGuard(t *testing.T) {
	var g RunGuard

	require.True(t, g.TryAcquire())
	assert.True(t, g.Running())
	assert.False(t, g.TryAcquire(), "second run rejected")

	g.Release()
	assert.False(t, g.Running())
	assert.True(t, g.TryAcquire())
	g.Release()
}
