// Package runlock keeps two zipp processes from working on the same
// directory tree at once.
//
// Locks live under the state directory, one file per absolute root path, so
// nothing is written into the user's trees.
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another process holds the lock.
var ErrLocked = errors.New("another zipp run is already working on this directory")

// Lock is a held advisory lock.
type Lock struct {
	root string
	path string
	fl   *flock.Flock
}

// PathFor returns the lock file used for root under stateDir.
func PathFor(stateDir, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", root, err)
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return filepath.Join(stateDir, "locks", hex.EncodeToString(sum[:8])+".lock"), nil
}

// Acquire takes the lock for root without blocking.
func Acquire(stateDir, root string) (*Lock, error) {
	path, err := PathFor(stateDir, root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, root)
	}
	return &Lock{root: root, path: path, fl: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks. Calling it more than once is harmless.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
