// Package state provides the dashboard-private state directory: path
// resolution, typed JSON reads, and atomic whole-file JSON writes.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/dagaz/internal/apperr"
)

// Backing file names inside the state directory.
const (
	TasksFile     = "tasks.json"
	ConfigFile    = "config.json"
	ProcCacheFile = "cron-cache.json"
	ChatFile      = "chat-history.json"
)

// Dir is a state directory. Every store owns exactly one file inside it;
// Dir itself holds no locks; serialization is the store's job.
type Dir struct {
	root string
}

// New resolves root to an absolute path. The directory is created lazily
// on first write.
func New(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("state: resolve root: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute state directory path.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the absolute path of a backing file.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, name)
}

// ReadJSON decodes the named file into v. A missing file is
// apperr.ErrNotFound; a file that exists but fails to parse is
// apperr.ErrCorrupt.
func (d *Dir) ReadJSON(name string, v any) error {
	data, err := os.ReadFile(d.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("state: %s: %w", name, apperr.ErrNotFound)
		}
		return fmt.Errorf("state: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("state: %s: %v: %w", name, err, apperr.ErrCorrupt)
	}
	return nil
}

// WriteJSON atomically replaces the named file: tmp file → fsync → rename.
// The containing directory is created if needed.
func (d *Dir) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal %s: %w", name, err)
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("state: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(d.root, ".dagaz-tmp-*")
	if err != nil {
		return fmt.Errorf("state: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("state: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("state: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp: %w", err)
	}
	if err := os.Rename(tmpName, d.Path(name)); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}
	success = true
	return nil
}

// Remove deletes the named file. Removing an absent file is not an error.
func (d *Dir) Remove(name string) error {
	if err := os.Remove(d.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("state: remove %s: %w", name, err)
	}
	return nil
}
