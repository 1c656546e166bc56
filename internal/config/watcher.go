package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 150 * time.Millisecond

type ReloadListener func(settings Settings)

// Watcher reloads the settings file when it changes on disk. The parent
// directory is watched because SaveSettings replaces the file by rename.
type Watcher struct {
	path     string
	onReload ReloadListener
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	stopped chan struct{}
}

func NewWatcher(path string, onReload ReloadListener, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{path: filepath.Clean(path), onReload: onReload, logger: logger}
}

func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return errors.New("settings watcher already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch settings dir: %w", err)
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	w.stopped = make(chan struct{})
	go w.loop(watcher, w.done, w.stopped)
	return nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	watcher := w.watcher
	done := w.done
	stopped := w.stopped
	w.watcher = nil
	w.mu.Unlock()

	if watcher == nil {
		return
	}
	close(done)
	watcher.Close()
	<-stopped
}

func (w *Watcher) loop(watcher *fsnotify.Watcher, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	settings, err := LoadSettings(w.path)
	if err != nil {
		w.logger.Warn("settings reload skipped", "path", w.path, "error", err)
		return
	}

	w.logger.Info("settings reloaded", "path", w.path)
	if w.onReload != nil {
		w.onReload(settings)
	}
}
