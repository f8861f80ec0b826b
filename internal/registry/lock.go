// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// CreateLock guards the check-then-daemonise window in Create: without
// it, uniqueness rests entirely on "pid file says dead, socket file is
// absent", which two concurrent `create` invocations for the same name
// could both observe as true before either has written anything. The
// lock does not replace that check (a session's liveness is still
// defined by pid-file-plus-kernel-probe, per the registry's design);
// it only serializes the narrow window where two callers could race
// past it.
type CreateLock struct {
	fileLock *flock.Flock
}

// AcquireCreateLock takes an advisory, non-blocking lock on a lock
// file beside the session's pid file (pidPath + ".lock"). Returns an error — including when another
// process already holds it — if the lock cannot be acquired
// immediately; Create treats that as "another create is in flight for
// this name" and refuses rather than blocking.
func AcquireCreateLock(pidPath string) (*CreateLock, error) {
	fileLock := flock.New(pidPath + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("registry: acquire create lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("registry: session creation already in progress")
	}
	return &CreateLock{fileLock: fileLock}, nil
}

// Release drops the lock and removes its backing file. Safe to call
// once; callers should not reuse a CreateLock after Release.
func (l *CreateLock) Release() error {
	if l == nil || l.fileLock == nil {
		return nil
	}
	path := l.fileLock.Path()
	if err := l.fileLock.Unlock(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
