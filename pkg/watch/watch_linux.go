//go:build linux

package watch

import (
	"bytes"
	"context"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Directories are watched rather than files so saves that replace the file
// through a rename are still seen.
const dirEvents = unix.IN_MODIFY | unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_CREATE

const pollInterval = 50 * time.Millisecond

type platform struct {
	fd   int
	dirs map[int]string
	wds  map[string]int
}

func (w *Watcher) init() error {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return errors.Wrap(err, "inotify_init")
	}
	w.fd = fd
	w.dirs = make(map[int]string)
	w.wds = make(map[string]int)
	return nil
}

func (w *Watcher) addPath(abs string) error {
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.wds[dir]; ok {
		return nil
	}
	wd, err := unix.InotifyAddWatch(w.fd, dir, dirEvents)
	if err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}
	w.dirs[wd] = dir
	w.wds[dir] = wd
	return nil
}

func (w *Watcher) run(ctx context.Context) error {
	buf := make([]byte, (unix.SizeofInotifyEvent+unix.NAME_MAX+1)*16)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := unix.Read(w.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				time.Sleep(pollInterval)
				continue
			}
			return errors.Wrap(err, "read inotify events")
		}

		offset := 0
		for offset+unix.SizeofInotifyEvent <= n {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			nameStart := offset + unix.SizeofInotifyEvent
			offset = nameStart + int(event.Len)

			if event.Mask&dirEvents == 0 || event.Len == 0 {
				continue
			}
			name := string(bytes.TrimRight(buf[nameStart:offset], "\x00"))

			w.mu.Lock()
			dir := w.dirs[int(event.Wd)]
			w.mu.Unlock()

			path := filepath.Join(dir, name)
			if dir != "" && w.watched(path) {
				w.debounced(path)
			}
		}
	}
}

func (w *Watcher) close() error {
	return unix.Close(w.fd)
}
