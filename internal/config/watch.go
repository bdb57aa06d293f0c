package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
)

// watchDebounce collapses the burst of events editors produce for one save.
const watchDebounce = 50 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk and hands
// every successfully validated result to a callback. Invalid edits are
// reported through the error callback and otherwise ignored.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	onError  func(error)
}

// NewWatcher watches path. The directory is watched rather than the file
// so that editors replacing the file by rename are still seen.
func NewWatcher(path string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create config watcher")
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", path)
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{path: filepath.Clean(path), watcher: w, onChange: onChange, onError: onError}, nil
}

// Run processes events until ctx is done. It closes the underlying
// watcher before returning.
func (w *Watcher) Run(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()

	debounce := time.NewTimer(0)
	<-debounce.C
	pending := false

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := ReadFile(w.path)
	if err != nil {
		w.onError(err)
		return
	}
	w.onChange(cfg)
}

// ReadFile loads path on top of the defaults, without touching the global
// viper instance.
func ReadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return LoadFrom(v)
}
