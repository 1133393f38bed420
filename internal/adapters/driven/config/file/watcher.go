package file

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/actharvest/internal/logger"
)

// Watcher reloads a ConfigStore whenever its file changes on disk.
type Watcher struct {
	store    *ConfigStore
	onChange func()
	fsw      *fsnotify.Watcher
}

// NewWatcher watches the directory holding the store's file. Editors that
// save by rename replace the file, so the directory is watched rather
// than the file itself.
func NewWatcher(store *ConfigStore, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(store.Path())); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{store: store, onChange: onChange, fsw: fsw}, nil
}

// Run processes events until ctx is cancelled. A file that fails to parse
// is logged and the previous configuration stays in effect.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.store.Load(); err != nil {
				logger.Warn("config: ignoring unreadable %s: %v", target, err)
				continue
			}
			logger.Info("config: reloaded %s", target)
			if w.onChange != nil {
				w.onChange()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config: watch error: %v", err)
		}
	}
}
