package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Reloader is a store that can re-read its backing file.
type Reloader interface {
	Path() string
	Reload() (bool, error)
}

// Watcher reloads a store when another process (the keyboard) rewrites its
// file, and reports effective changes through onChange.
type Watcher struct {
	store    Reloader
	onChange func()
	watcher  *fsnotify.Watcher
}

// NewWatcher starts watching the directory that holds the store's file.
func NewWatcher(store Reloader, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("prefs: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(store.Path())); err != nil {
		fw.Close()
		return nil, fmt.Errorf("prefs: watch %s: %w", filepath.Dir(store.Path()), err)
	}
	return &Watcher{store: store, onChange: onChange, watcher: fw}, nil
}

// Run processes file events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	path := filepath.Clean(w.store.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			changed, err := w.store.Reload()
			if err != nil {
				slog.Warn("prefs: failed to reload preferences", "path", path, "err", err)
				continue
			}
			if changed {
				slog.Debug("prefs: preferences changed on disk", "path", path)
				if w.onChange != nil {
					w.onChange()
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("prefs: watcher error", "err", err)
		}
	}
}
