package source

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to one file.
//
// The parent directory is watched rather than the file, so editors that
// replace the file on save keep being followed. Bursts of events collapse
// into a single pending notification.
type Watcher struct {
	w       *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
	path    string
	once    sync.Once
}

// NewWatcher starts watching path.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	dir := filepath.Dir(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	err = fw.Add(dir)
	if err != nil {
		_ = fw.Close()

		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		w:       fw,
		path:    filepath.Join(dir, filepath.Base(abs)),
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	defer close(w.changes)

	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}

			if filepath.Clean(ev.Name) != w.path {
				continue
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}

			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}

			slog.Warn("watch file",
				slog.String("path", w.path),
				slog.Any("error", err),
			)

		case <-w.done:
			return
		}
	}
}

// Changes delivers one value per burst of changes. It is closed after
// [Watcher.Close].
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops watching. Idempotent.
func (w *Watcher) Close() error {
	var err error

	w.once.Do(func() {
		close(w.done)
		err = w.w.Close()
	})

	return err
}

// Watchable is implemented by sources backed by a local file.
type Watchable interface {
	Path() string
}
