// Package watch reports changes to source files. It backs `superc watch`.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultDelay coalesces the bursts of events editors produce on save.
const DefaultDelay = 200 * time.Millisecond

// Watcher calls onChange once per burst of changes to a watched file.
type Watcher struct {
	mu       sync.Mutex
	files    map[string]time.Time
	timers   map[string]*time.Timer
	onChange func(path string)
	delay    time.Duration

	platform
}

// New creates a watcher. onChange receives absolute paths and runs on its
// own goroutine.
func New(onChange func(path string), delay time.Duration) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	w := &Watcher{
		files:    make(map[string]time.Time),
		timers:   make(map[string]*time.Timer),
		onChange: onChange,
		delay:    delay,
	}
	if err := w.init(); err != nil {
		return nil, err
	}
	return w, nil
}

// Add starts watching path, which must exist.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "watch %s", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return errors.Wrapf(err, "watch %s", path)
	}

	w.mu.Lock()
	w.files[abs] = info.ModTime()
	w.mu.Unlock()

	return w.addPath(abs)
}

// Run blocks delivering changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	err := w.run(ctx)

	w.mu.Lock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	return err
}

// Close releases the watcher's resources.
func (w *Watcher) Close() error {
	return w.close()
}

func (w *Watcher) watched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[path]
	return ok
}

func (w *Watcher) debounced(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}

	w.timers[path] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.onChange(path)
	})
}
