package dictionary

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow absorbs the write-then-rename event bursts editors and
// config management tools produce when replacing the dictionary file.
const debounceWindow = 200 * time.Millisecond

// Watcher reloads the store when the dictionary file changes on disk.
// It watches the parent directory so atomic replaces (write tmp, rename
// over) are seen even when the inode changes.
type Watcher struct {
	store    *Store
	logger   *slog.Logger
	debounce time.Duration
}

func NewWatcher(store *Store, logger *slog.Logger) *Watcher {
	return &Watcher{store: store, logger: logger, debounce: debounceWindow}
}

// Run blocks until ctx is cancelled, reloading the store after each
// debounced change. A reload failure keeps the previous snapshot and is
// logged; the watcher keeps running.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.store.Path())
	if err := fw.Add(dir); err != nil {
		return err
	}
	target := filepath.Base(w.store.Path())

	w.logger.Info("dictionary watcher started", "dir", dir, "file", target)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if err := w.store.Reload(); err != nil {
				w.logger.Warn("dictionary reload failed, previous snapshot stays active", "err", err)
				continue
			}
			w.logger.Info("dictionary reloaded from file change",
				"generation", w.store.Snapshot().Generation,
				"entries", w.store.Snapshot().Len(),
			)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("dictionary watcher error", "err", err)
		}
	}
}
