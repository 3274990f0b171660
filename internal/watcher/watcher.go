// Package watcher reports changes to a single file on disk, coalescing bursts
// of filesystem events into one callback.
package watcher

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = time.Millisecond * 100

type Watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

// WatchFile calls callback after path is created, written, renamed over or
// removed. The parent directory is watched rather than the file itself so
// that atomic replace-by-rename writes are seen.
func WatchFile(
	path string,
	debounce time.Duration,
	callback func(),
) (
	*Watcher,
	error,
) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	target := filepath.Clean(path)
	if err := fs.Add(filepath.Dir(target)); err != nil {
		_ = fs.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		fs:   fs,
		done: make(chan struct{}),
	}

	reload := make(chan struct{}, 1)
	go w.scheduleReload(reload, debounce, callback)
	go w.handleEvents(target, reload)
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) handleEvents(
	target string,
	reload chan<- struct{},
) {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("file watcher error", "path", target, "err", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload(
	reload <-chan struct{},
	debounce time.Duration,
	callback func(),
) {
	var timer *time.Timer = nil
	var c <-chan time.Time = nil
	for {
		select {
		case <-reload:
			if timer != nil {
				timer.Reset(debounce)
			} else {
				timer = time.NewTimer(debounce)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			callback()

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
