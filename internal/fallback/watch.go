package fallback

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a fallback file into a Source whenever it changes.
type Watcher struct {
	Path   string
	Source *Source
	Log    *zap.Logger
	// OnReload is called after every reload attempt; err is nil on success.
	OnReload func(err error)
}

// Run watches until ctx is done. The parent directory is watched so that
// editors replacing the file through a rename are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("fallback watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fallback watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("fallback watch %s: %w", filepath.Dir(abs), err)
	}
	log.Info("watching fallback file", zap.String("path", abs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload(abs, log)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("fallback watcher error", zap.Error(err))
		}
	}
}

// reload keeps the current table when the file does not parse.
func (w *Watcher) reload(path string, log *zap.Logger) {
	t, err := Load(path)
	if err != nil {
		log.Warn("fallback reload failed, keeping previous table", zap.String("path", path), zap.Error(err))
	} else {
		w.Source.Store(t)
		log.Info("fallback table reloaded", zap.String("path", path), zap.Int("quotes", len(t)))
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}
