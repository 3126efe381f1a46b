package settings

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"dccpub/internal/logging"
)

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads the settings at path whenever it changes and passes every
// valid reload to onChange. Invalid documents are logged and skipped, so
// consumers keep the last good settings. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file so editors that
// replace the file by rename are picked up.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func(*Settings)) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve settings path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching settings", logging.String("path", abs))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "settings_watch_error"),
			)
		case <-timer.C:
			next, err := Load(abs)
			if err != nil {
				logger.Warn("settings reload rejected; keeping previous settings",
					logging.Error(err),
					logging.String(logging.FieldEventType, "settings_reload_rejected"),
					logging.String(logging.FieldErrorHint, "fix the settings document and save again"),
				)
				continue
			}
			logger.Info("settings reloaded",
				logging.String("path", abs),
				logging.String(logging.FieldEventType, "settings_reloaded"),
			)
			onChange(next)
		}
	}
}
