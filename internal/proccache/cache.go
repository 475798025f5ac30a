// Package proccache reads the scheduled-job cache written by the agent
// runtime. Dagaz never creates, mutates, or deletes these records.
package proccache

import (
	"errors"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/state"
)

// Reader exposes the process cache file.
type Reader struct {
	dir *state.Dir
}

// New creates a cache reader over the given state directory.
func New(dir *state.Dir) *Reader {
	return &Reader{dir: dir}
}

// envelope is the wrapped cache form some agent versions write.
type envelope struct {
	Processes []models.Process `json:"processes"`
}

// List returns the cached processes. The cache may be a bare array or a
// {"processes": [...]} envelope. A missing cache is an empty list; a
// cache that parses as neither form is apperr.ErrCorrupt.
func (r *Reader) List() ([]models.Process, error) {
	var procs []models.Process
	err := r.dir.ReadJSON(state.ProcCacheFile, &procs)
	if err == nil {
		return procs, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return []models.Process{}, nil
	}
	if errors.Is(err, apperr.ErrCorrupt) {
		var env envelope
		if envErr := r.dir.ReadJSON(state.ProcCacheFile, &env); envErr == nil && env.Processes != nil {
			return env.Processes, nil
		}
	}
	return nil, err
}
