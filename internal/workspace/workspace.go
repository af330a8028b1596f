package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/clipdock/clipdock/internal/util"
)

// Manager allocates per-attempt working directories under Root. Each
// workspace belongs to exactly one download attempt and is removed when
// that attempt ends, whatever the outcome.
type Manager struct {
	Root string

	// MinDiskGB, when positive, refuses workspace creation while free
	// space under Root is below the floor.
	MinDiskGB float64
}

type Workspace struct {
	ID   string
	Path string
}

func NewManager(root string, minDiskGB float64) *Manager {
	return &Manager{Root: root, MinDiskGB: minDiskGB}
}

// Create makes a fresh, empty, uniquely named directory. The caller owns
// it and must arrange Destroy on every exit path.
func (m *Manager) Create() (*Workspace, error) {
	if err := os.MkdirAll(m.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}

	if m.MinDiskGB > 0 {
		if ds, err := util.GetDiskSpace(m.Root); err == nil && ds.AvailGB < m.MinDiskGB {
			return nil, fmt.Errorf("low disk space: %.1fGB free, need %.1fGB", ds.AvailGB, m.MinDiskGB)
		}
	}

	id := uuid.New().String()
	path := filepath.Join(m.Root, "job-"+id)
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{ID: id, Path: path}, nil
}

// Destroy removes the workspace and everything in it. Safe to call more
// than once and on partially removed directories; removal problems are
// logged so they never mask the attempt's real outcome.
func (w *Workspace) Destroy() {
	if w == nil || w.Path == "" {
		return
	}
	if err := os.RemoveAll(w.Path); err != nil {
		log.Printf("[Cleanup] Failed to remove workspace %s: %v", util.ShortID(w.ID), err)
	}
}

// ClearAll wipes every leftover workspace under Root. Called once at
// process start to recover from unclean shutdowns.
func (m *Manager) ClearAll() {
	entries, err := os.ReadDir(m.Root)
	if err != nil {
		os.MkdirAll(m.Root, 0o755)
		return
	}
	removed := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(m.Root, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[Cleanup] Cleared %d stale workspaces from %s", removed, m.Root)
	}
}
