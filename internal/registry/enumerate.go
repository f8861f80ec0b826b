// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"os"
	"strings"
)

const socketSuffix = ".sock"

// Entry describes one live session as seen by Enumerate.
type Entry struct {
	Name string
	Info Info
}

// Enumerate scans root for session sockets, drops names that fail
// validation, removes the registry files of any session whose daemon
// is no longer alive, and returns the remaining live sessions.
//
// Enumerate is one of the four callers (alongside Open, Create, and
// Kill) that perform stale cleanup on discovery — there is no
// separate garbage-collector process.
func Enumerate(root string) ([]Entry, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var live []Entry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), socketSuffix)
		if !ok {
			continue
		}
		if err := ValidateName(name); err != nil {
			continue
		}

		paths := PathsFor(root, name)
		if !IsSessionAlive(paths.PID) {
			_ = Remove(root, name)
			continue
		}

		info, _ := ReadInfo(paths.Info)
		live = append(live, Entry{Name: name, Info: info})
	}

	return live, nil
}

// Remove unlinks all three registry files for name. Best-effort and
// idempotent: missing files are not an error.
func Remove(root, name string) error {
	paths := PathsFor(root, name)
	var firstErr error
	for _, path := range []string{paths.Socket, paths.PID, paths.Info} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
