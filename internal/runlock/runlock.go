// Package runlock keeps two runs over the same key set from racing each
// other's nonces.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
)

type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the lock at path without blocking. A lock held by another
// process returns CodeLocked.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "create lock directory", err)
	}
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, fmt.Sprintf("lock %s", path), err)
	}
	if !locked {
		return nil, clierr.New(clierr.CodeLocked, fmt.Sprintf("another run holds %s", path))
	}
	return &Lock{path: path, lock: fl}, nil
}

func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks. It is safe to call on a nil Lock and more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
