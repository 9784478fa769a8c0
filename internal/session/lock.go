package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Lock allows one export at a time. The in-memory flag covers this process;
// the optional advisory file lock covers other recorder processes.
type Lock struct {
	mu   sync.Mutex
	held bool
	file *flock.Flock
}

// NewLock creates a lock. An empty path disables the file lock.
func NewLock(path string) *Lock {
	l := &Lock{}
	if path != "" {
		l.file = flock.New(path)
	}
	return l
}

// processLock is shared by sessions created without their own lock
var processLock = NewLock("")

// TryAcquire takes the lock or returns ErrSessionActive
func (l *Lock) TryAcquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return ErrSessionActive
	}

	if l.file != nil {
		if err := os.MkdirAll(filepath.Dir(l.file.Path()), 0755); err != nil {
			return fmt.Errorf("failed to create lock directory: %w", err)
		}
		locked, err := l.file.TryLock()
		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", l.file.Path(), err)
		}
		if !locked {
			return fmt.Errorf("%w in another process (%s)", ErrSessionActive, l.file.Path())
		}
	}

	l.held = true
	return nil
}

// Release frees the lock; releasing an unheld lock is a no-op
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false

	if l.file != nil {
		if err := l.file.Unlock(); err != nil {
			return fmt.Errorf("failed to unlock %s: %w", l.file.Path(), err)
		}
	}
	return nil
}

// Held reports whether this lock is currently taken
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
