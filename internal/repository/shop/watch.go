package shop

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/order-alert/internal/logger"
)

// Watch calls onChange every time the store file is created, written or
// replaced. It watches the parent directory because editors and the UI may
// replace the file instead of writing in place. Watch blocks until ctx is done.
func (r *FileRepository) Watch(ctx context.Context, onChange func(ctx context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	dir := filepath.Dir(r.path)
	if err = watcher.Add(dir); err != nil {
		return fmt.Errorf("watch store dir: %w", err)
	}

	logger.InfoKV(ctx, "Watching shop store", "path", r.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !r.isStoreEvent(event) {
				continue
			}

			logger.DebugKV(ctx, "Shop store changed", "op", event.Op.String())
			onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.ErrorKV(ctx, "Shop store watcher error", "error", err)
		}
	}
}

// isStoreEvent reports whether event touched the store file with new content.
func (r *FileRepository) isStoreEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != r.path {
		return false
	}

	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
