package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the transcript settings from path whenever the file changes
// and publishes them to store. The parent directory is watched so that
// editors replacing the file by rename are picked up. Invalid files are
// logged and ignored. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, base Config, store *Store) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	slog.Info("watching config file", "path", abs)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case <-pending:
			pending = nil
			reload(abs, base, store)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func reload(path string, base Config, store *Store) {
	cfg, err := LoadFile(path, base)
	if err != nil {
		slog.Error("config reload failed", "path", path, "error", err)
		return
	}
	if err := cfg.Settings.Validate(); err != nil {
		slog.Error("config reload rejected", "path", path, "error", err)
		return
	}
	store.Replace(cfg.Settings)
	slog.Info("config reloaded", "path", path)
}
