package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collects the burst of events editors emit for one save
const watchDebounce = 200 * time.Millisecond

// Watch loads every seed file in dir that is created or written until ctx
// is done. onResult, when set, receives each file result.
func (l *Loader) Watch(ctx context.Context, dir string, onResult func(FileResult)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	l.log.Info().Str("dir", dir).Msg("Watching for idea seeds")

	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("Watcher stopping")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isSeedFile(filepath.Base(event.Name)) {
				continue
			}
			pending[event.Name] = struct{}{}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			for path := range pending {
				result, err := l.LoadFile(ctx, path)
				if err != nil {
					return err
				}
				if onResult != nil {
					onResult(result)
				}
			}
			pending = make(map[string]struct{})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.Warn().Err(err).Msg("Watcher error")
		}
	}
}
