// Package watch maps state-directory file changes to SSE resource events.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/state"
)

// debounce collapses rapid successive writes to the same backing file
// (atomic replace fires Create + Rename pairs).
const debounce = 200 * time.Millisecond

// resourceFor maps a backing file name to its SSE resource.
var resourceFor = map[string]string{
	state.TasksFile:     "tasks",
	state.ConfigFile:    "settings",
	state.ProcCacheFile: "processes",
	state.ChatFile:      "chat",
}

// ChangeCallback is called with the resource name after a debounced
// backing-file change.
type ChangeCallback func(resource string)

// Run watches the state directory until ctx is cancelled, invoking cb for
// each changed backing file. The directory is created if missing so the
// watch can be established before the first write.
func Run(ctx context.Context, dir *state.Dir, logger *slog.Logger, cb ChangeCallback) error {
	if err := os.MkdirAll(dir.Root(), 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", dir.Root()))

	// One debounce timer per resource.
	pending := make(map[string]*time.Timer)
	fired := make(chan string, 16)

	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case resource := <-fired:
			delete(pending, resource)
			if cb != nil {
				cb(resource)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			resource, tracked := resourceFor[filepath.Base(ev.Name)]
			if !tracked {
				continue
			}
			logger.Debug("watcher: change",
				slog.String("file", filepath.Base(ev.Name)),
				slog.String("op", ev.Op.String()))
			if t, exists := pending[resource]; exists {
				t.Reset(debounce)
				continue
			}
			r := resource
			pending[resource] = time.AfterFunc(debounce, func() {
				select {
				case fired <- r:
				case <-ctx.Done():
				}
			})

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
