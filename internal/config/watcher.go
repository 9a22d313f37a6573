package config

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// LibraryWatcher watches the sound library file and invokes a callback with
// the freshly parsed library whenever it is rewritten. Used to register
// newly added sound definitions without a restart.
type LibraryWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onReload func(*Library)
}

// WatchLibrary starts watching path. onReload is called from the watcher
// goroutine; the caller is responsible for its own locking. Returns an
// error only when the watcher cannot be created; a missing file is fine,
// the callback fires once it appears.
func WatchLibrary(path string, onReload func(*Library)) (*LibraryWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &LibraryWatcher{
		path:     path,
		watcher:  watcher,
		onReload: onReload,
	}

	// Watch the directory: editors replace files by rename, which drops a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *LibraryWatcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				lib, err := LoadLibrary(w.path)
				if err != nil {
					slog.Warn("config: failed to reload library", "path", w.path, "err", err)
					continue
				}
				slog.Info("config: library reloaded", "path", w.path, "sounds", len(lib.Sounds))
				w.onReload(lib)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}

// Close stops the watcher.
func (w *LibraryWatcher) Close() error {
	return w.watcher.Close()
}
