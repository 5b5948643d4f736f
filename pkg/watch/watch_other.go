//go:build !linux

package watch

import (
	"context"
	"os"
	"time"
)

const pollInterval = 250 * time.Millisecond

// platform polls modification times.
type platform struct {
	stop chan struct{}
}

func (w *Watcher) init() error {
	w.stop = make(chan struct{})
	return nil
}

func (w *Watcher) addPath(string) error {
	return nil
}

func (w *Watcher) run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		case <-ticker.C:
			w.checkFiles()
		}
	}
}

func (w *Watcher) checkFiles() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.files))
	for path := range w.files {
		paths = append(paths, path)
	}
	w.mu.Unlock()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		w.mu.Lock()
		last := w.files[path]
		w.files[path] = info.ModTime()
		w.mu.Unlock()

		if info.ModTime().After(last) {
			w.debounced(path)
		}
	}
}

func (w *Watcher) close() error {
	close(w.stop)
	return nil
}
