// Package settings persists the dashboard configuration singleton.
//
// The store is an explicit object injected into whichever components need
// it; there is no package-level cache. The in-memory copy is filled on
// first access, refreshed by Reload, and kept current by Save.
package settings

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/state"
)

// Defaults used when no config file exists yet.
const (
	DefaultAgentName       = "Agent"
	DefaultRefreshInterval = 30000
)

// Updates carries the fields mutable through Save. Nil means unchanged.
type Updates struct {
	AgentName       *string
	RefreshInterval *int
	ThemeIndex      *int
}

// Store owns the settings backing file.
type Store struct {
	mu        sync.Mutex
	dir       *state.Dir
	workspace string
	cached    *models.DashConfig
	now       func() time.Time
}

// New creates a settings store. workspace is the default workspace path
// recorded on first startup.
func New(dir *state.Dir, workspace string) *Store {
	return &Store{dir: dir, workspace: workspace, now: time.Now}
}

func (s *Store) defaults() models.DashConfig {
	return models.DashConfig{
		AgentName:       DefaultAgentName,
		RefreshInterval: DefaultRefreshInterval,
		ThemeIndex:      0,
		WorkspacePath:   s.workspace,
		StartedAt:       s.now().UnixMilli(),
	}
}

// load fills the cache from disk. Missing file: defaults are written out
// so StartedAt survives restarts. Corrupt file: defaults are used for this
// process but the file is left alone. Callers hold s.mu.
func (s *Store) load() (models.DashConfig, error) {
	if s.cached != nil {
		return *s.cached, nil
	}
	cfg := s.defaults()
	err := s.dir.ReadJSON(state.ConfigFile, &cfg)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		if writeErr := s.dir.WriteJSON(state.ConfigFile, cfg); writeErr != nil {
			return models.DashConfig{}, writeErr
		}
	case errors.Is(err, apperr.ErrCorrupt):
		// Keep serving defaults; the next Save rewrites the file.
	default:
		return models.DashConfig{}, err
	}
	s.cached = &cfg
	return cfg, nil
}

// Get returns the current settings, loading them on first access.
func (s *Store) Get() (models.DashConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Reload discards the in-memory copy and re-reads from disk, picking up
// external edits to the backing file.
func (s *Store) Reload() (models.DashConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	return s.load()
}

// Save applies updates read-merge-write against the backing file and
// refreshes the cache.
func (s *Store) Save(u Updates) (models.DashConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return models.DashConfig{}, err
	}
	if u.AgentName != nil {
		cfg.AgentName = *u.AgentName
	}
	if u.RefreshInterval != nil {
		if *u.RefreshInterval <= 0 {
			return models.DashConfig{}, fmt.Errorf("settings: refreshInterval: %w", apperr.ErrInvalid)
		}
		cfg.RefreshInterval = *u.RefreshInterval
	}
	if u.ThemeIndex != nil {
		if *u.ThemeIndex < 0 {
			return models.DashConfig{}, fmt.Errorf("settings: themeIndex: %w", apperr.ErrInvalid)
		}
		cfg.ThemeIndex = *u.ThemeIndex
	}
	if err := s.dir.WriteJSON(state.ConfigFile, cfg); err != nil {
		return models.DashConfig{}, err
	}
	s.cached = &cfg
	return cfg, nil
}

// WorkspacePath returns the configured workspace root.
func (s *Store) WorkspacePath() (string, error) {
	cfg, err := s.Get()
	if err != nil {
		return "", err
	}
	return cfg.WorkspacePath, nil
}

// StartedAt returns the recorded first-startup instant in Unix millis.
func (s *Store) StartedAt() (int64, error) {
	cfg, err := s.Get()
	if err != nil {
		return 0, err
	}
	return cfg.StartedAt, nil
}
