// Package snapshot holds the current directory in memory and persists each
// committed run.
//
// A Manager has a single writer: only one run may Commit at a time, which
// callers enforce with RunGuard. Readers call Current from any goroutine.
package snapshot

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tomatolover555/windrose-ai/internal/storage"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

type Manager struct {
	current   atomic.Value // stores *types.Snapshot
	storage   storage.Storage
	persistMu sync.Mutex
}

func NewManager(store storage.Storage) *Manager {
	m := &Manager{storage: store}

	// Initialize with empty snapshot
	m.current.Store(types.EmptySnapshot(time.Now().UTC()))

	return m
}

// Load reads the persisted snapshot once. A missing or unreadable snapshot
// is replaced by an empty one so the next run can start over.
func (m *Manager) Load() *types.Snapshot {
	snap, err := m.storage.Load()
	switch {
	case err != nil && errors.Is(err, storage.ErrCorrupt):
		log.Warnf("Stored snapshot is corrupt, starting empty: %v", err)
		snap = nil
	case err != nil:
		log.Warnf("Failed to load snapshot, starting empty: %v", err)
		snap = nil
	case snap == nil:
		log.Info("No stored snapshot, starting empty")
	default:
		log.Infof("Loaded snapshot with %d items (updated %s)", len(snap.Items), snap.UpdatedAt.Format(time.RFC3339))
	}

	if snap == nil {
		snap = types.EmptySnapshot(time.Now().UTC())
	}
	m.current.Store(snap)
	return snap
}

// Current returns the latest committed snapshot. Callers must not modify it.
func (m *Manager) Current() *types.Snapshot {
	return m.current.Load().(*types.Snapshot)
}

// Commit makes snap current and writes it to storage. The in-memory swap
// happens even if persisting fails.
func (m *Manager) Commit(snap *types.Snapshot) error {
	m.current.Store(snap)
	log.Infof("Snapshot updated: %d items", len(snap.Items))

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if err := m.storage.Save(snap); err != nil {
		log.Errorf("Failed to persist snapshot: %v", err)
		return err
	}
	log.Debugf("Snapshot persisted: %d items", len(snap.Items))
	return nil
}

// Find looks a domain up in the current snapshot.
func (m *Manager) Find(domain string) (types.DirectoryItem, bool) {
	return m.Current().Find(domain)
}

func (m *Manager) Close() error {
	return m.storage.Close()
}

// RunGuard admits one run at a time.
type RunGuard struct {
	mu      sync.Mutex
	running atomic.Bool
}

// TryAcquire returns false when a run is already active.
func (g *RunGuard) TryAcquire() bool {
	if !g.mu.TryLock() {
		return false
	}
	g.running.Store(true)
	return true
}

func (g *RunGuard) Release() {
	g.running.Store(false)
	g.mu.Unlock()
}

func (g *RunGuard) Running() bool { return g.running.Load() }
