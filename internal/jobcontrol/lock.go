package jobcontrol

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another run already holds the signature lock.
var ErrLocked = errors.New("another run of this signature is in progress")

// RunLock is an exclusive advisory lock on one signature.
type RunLock struct {
	lock *flock.Flock
}

// AcquireLock takes the signature run lock without blocking.
func AcquireLock(path string) (*RunLock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}
	return &RunLock{lock: lock}, nil
}

// Release drops the lock.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
