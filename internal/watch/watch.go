// Package watch reports changes to the files a character's cache is built
// from, using fsnotify with a polling fallback.
package watch

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"tools.zach/dev/galcard/internal/assets"
	"tools.zach/dev/galcard/internal/logger"
	"tools.zach/dev/galcard/internal/paths"
)

// DefaultPollInterval is used when no interval is given.
const DefaultPollInterval = 2 * time.Second

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher monitors a set of directories for image and config changes.
type Watcher struct {
	// dirs are the watched directories. Missing ones are skipped by fsnotify
	// and read as empty when polling.
	dirs []string
	// events delivers a signal each time a relevant file changes.
	// The channel is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// mu guards fsw.
	mu sync.Mutex
	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	// once ensures [Watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between scans in polling mode.
	pollInterval time.Duration
}

// New watches dirs. A non-positive pollInterval selects [DefaultPollInterval].
func New(dirs []string, pollInterval time.Duration) (*Watcher, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("watch: no directories")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	w := &Watcher{
		dirs:         dirs,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}

	added := 0
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			slog.Debug("not watching directory", "path", dir, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		slog.Info("no watchable directories, falling back to polling", "dirs", dirs)
		fsw.Close()
		w.startPolling()
		return w, nil
	}

	w.fsw = fsw
	go w.watch(fsw)
	return w, nil
}

// ForCharacter watches the directories whose contents feed character id's
// cache: the character directory (config and dialogue box), its portraits,
// its backgrounds, and the common backgrounds.
func ForCharacter(dir paths.AssetDir, id string, pollInterval time.Duration) (*Watcher, error) {
	return New([]string{
		dir.Character(id),
		dir.Portraits(id),
		dir.Backgrounds(id),
		dir.CommonBackgrounds(),
	}, pollInterval)
}

// relevant reports whether a change to name can affect a build.
func relevant(name string) bool {
	base := filepath.Base(name)
	return assets.IsImage(base) || slices.Contains(paths.ConfigFiles, base)
}

// watch forwards relevant fsnotify events to the events channel. On an
// fsnotify error it closes the native watcher and falls back to polling.
func (w *Watcher) watch(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod || !relevant(event.Name) {
				continue
			}
			logger.Trace(slog.Default(), "asset changed", "path", event.Name, "op", event.Op.String())
			w.notify()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.mu.Lock()
			w.fsw = nil
			w.mu.Unlock()
			fsw.Close()
			w.startPolling()
			return
		}
	}
}

func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll()
}

// poll rescans the directories every interval and signals when their
// fingerprint changes.
func (w *Watcher) poll() {
	last := fingerprint(w.dirs)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if fp := fingerprint(w.dirs); fp != last {
				last = fp
				w.notify()
			}
		}
	}
}

// fingerprint hashes the name, size, and modification time of every relevant
// file in dirs.
func fingerprint(dirs []string) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !relevant(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			h.WriteString(filepath.Join(dir, e.Name()))
			binary.LittleEndian.PutUint64(buf[:], uint64(info.Size()))
			h.Write(buf[:])
			binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().UnixNano()))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when a watched file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
			w.fsw = nil
		}
	})
	return err
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// ///////////////////////////////////////////////
// Debounce
// ///////////////////////////////////////////////

// Debounce calls fn once events have been quiet for wait, until ctx is done
// or events is closed. fn runs on the calling goroutine.
func Debounce(ctx context.Context, events <-chan struct{}, wait time.Duration, fn func()) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if timer == nil {
				timer = time.NewTimer(wait)
			} else {
				timer.Reset(wait)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			fn()
		}
	}
}
