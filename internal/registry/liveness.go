// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// WritePID writes the pid file: one line containing the decimal
// process id, followed by a newline.
func WritePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

// ReadPID reads and parses a pid file. Returns an error if the file
// is missing or its content does not parse to a positive integer.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("registry: parse pid file %s: %w", path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("registry: pid file %s contains non-positive pid %d", path, pid)
	}
	return pid, nil
}

// IsAlive reports whether the kernel has a process with the given
// pid. Uses signal 0, which performs the existence and permission
// check without actually delivering a signal.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// IsSessionAlive reports whether the session named by pidPath has a
// live daemon: the pid file parses to a positive integer and the
// kernel reports that process exists. Any other outcome — missing
// file, unparseable content, dead process — means the session is
// stale or absent.
func IsSessionAlive(pidPath string) bool {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return false
	}
	return IsAlive(pid)
}
