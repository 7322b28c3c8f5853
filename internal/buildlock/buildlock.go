// Package buildlock serializes cache builds of one character across
// processes with an exclusive, non-blocking advisory lock on
// assets/cache/<id>/.build.lock.
package buildlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked is returned when another build of the same character holds the lock.
var ErrLocked = errors.New("build already in progress")

// Lock is a held build lock.
type Lock struct {
	f *os.File
}

// Acquire takes the lock at path, creating the file and its directory when
// missing. It never blocks: a held lock yields [ErrLocked].
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if isContended(err) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. The lock file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unlockFile(l.f)
	closeErr := l.f.Close()
	l.f = nil
	return errors.Join(unlockErr, closeErr)
}
