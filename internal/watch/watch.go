// Package watch re-runs a callback when either file of the mirrored pair
// changes on disk.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/faf/internal/storage"
)

// DefaultDebounce is the quiet period after the last event before the
// callback runs.
const DefaultDebounce = 200 * time.Millisecond

// Callback receives the relative names that changed since the last call.
type Callback func(ctx context.Context, changed []string)

// Watch watches root (non-recursively) and calls cb once activity on any of
// names has settled. It returns when ctx is cancelled.
//
// The directory is watched rather than the files so that atomic renames
// over a watched file keep being observed. Writer temp and backup files are
// ignored.
func Watch(ctx context.Context, root string, names []string, debounce time.Duration, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[filepath.Clean(n)] = struct{}{}
	}

	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	pending := map[string]struct{}{}

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			timer = nil
			timerCh = nil
			changed := make([]string, 0, len(pending))
			for n := range pending {
				changed = append(changed, n)
			}
			pending = map[string]struct{}{}
			logger.Debug("watcher: settled", slog.Any("changed", changed))
			cb(ctx, changed)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || ignored(rel) {
				continue
			}
			if _, ok := wanted[rel]; !ok {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			logger.Debug("watcher: event", slog.String("path", rel), slog.String("op", ev.Op.String()))
			pending[rel] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func ignored(name string) bool {
	return strings.HasSuffix(name, storage.TempSuffix) || strings.HasSuffix(name, storage.BackupSuffix)
}
