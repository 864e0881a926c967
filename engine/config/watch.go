package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch delivers a freshly loaded Config every time the file at path is written, created or
// renamed into place. Invalid edits are logged and skipped. The channel holds at most the latest
// config and is closed when ctx is done.
//
// The parent directory is watched, so editors that save by replacing the file are seen.
//
// Parameters:
//   - ctx: stops the watcher
//   - path: the TOML file
//
// Returns:
//   - <-chan Config: reloaded configurations
//   - error: error if the watcher cannot be created
func Watch(ctx context.Context, path string) (<-chan Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: failed to watch %s: %w", filepath.Dir(abs), err)
	}

	out := make(chan Config, 1)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				cfg, err := Load(abs)
				if err != nil {
					slog.Error("config reload rejected", "path", abs, "error", err)
					continue
				}
				slog.Info("config reloaded", "path", abs)
				deliver(out, cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("config watcher", "path", abs, "error", err)
			}
		}
	}()
	return out, nil
}

// deliver replaces any undelivered config with cfg.
func deliver(out chan Config, cfg Config) {
	select {
	case <-out:
	default:
	}
	out <- cfg
}
