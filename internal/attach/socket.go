// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

// Package attach implements the interactive client: connecting to a
// named session's socket, handing the local terminal to raw mode,
// forwarding keystrokes and window-size changes, rendering the
// session's output, and restoring the terminal on every exit path.
package attach

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// connectSocket dials a unix-domain stream socket at path, returning
// its raw file descriptor so the caller can drive it with the same
// unix.Poll-based readiness loop used for standard input.
func connectSocket(path string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("attach: create socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("attach: connect %s: %w", path, err)
	}
	return fd, nil
}
