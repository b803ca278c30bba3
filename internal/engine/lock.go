// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/pdiddy/probsplit/pkg/types"
)

// LockSuffix is appended to a document path to form its lock file.
const LockSuffix = ".lock"

const lockFlags = os.O_CREATE | os.O_EXCL | os.O_WRONLY

// Lock takes exclusive access to path by creating path+LockSuffix holding
// the owner's pid. A lock whose owner is no longer running is reclaimed.
// In a directory that cannot hold a lock file the document is opened
// unlocked. The returned release func removes the lock and is safe to
// call twice.
func Lock(path string) (release func() error, err error) {
	lockPath := path + LockSuffix
	f, err := os.OpenFile(lockPath, lockFlags, 0o644)
	if errors.Is(err, os.ErrExist) && reclaimStale(lockPath) {
		f, err = os.OpenFile(lockPath, lockFlags, 0o644)
	}
	if err != nil {
		switch {
		case errors.Is(err, os.ErrExist):
			return nil, fmt.Errorf("%w: %s", types.ErrLocked, path)
		case errors.Is(err, os.ErrPermission), errors.Is(err, syscall.EROFS):
			return func() error { return nil }, nil
		}
		return nil, fmt.Errorf("creating lock for %s: %w", path, err)
	}
	fmt.Fprintln(f, strconv.Itoa(os.Getpid()))
	f.Close()

	var once sync.Once
	var releaseErr error
	return func() error {
		once.Do(func() {
			if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				releaseErr = fmt.Errorf("removing lock %s: %w", lockPath, err)
			}
		})
		return releaseErr
	}, nil
}

// reclaimStale removes lockPath when the pid it records is not running.
// An unreadable or half-written lock is left alone.
func reclaimStale(lockPath string) bool {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || processAlive(pid) {
		return false
	}
	err = os.Remove(lockPath)
	return err == nil || errors.Is(err, os.ErrNotExist)
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return !errors.Is(err, os.ErrProcessDone) && !errors.Is(err, syscall.ESRCH)
}
