// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package ptyhost

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// openPTY allocates a PTY master/slave pair using the Linux devpts
// interface, returning the master as a raw file descriptor (so the
// daemon's poll loop can put it in non-blocking mode and drive it
// with unix.Read/unix.Write directly) and the filesystem path to the
// slave.
func openPTY() (master int, slavePath string, err error) {
	master, err = unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return -1, "", fmt.Errorf("open /dev/ptmx: %w", err)
	}

	ptyNumber, err := unix.IoctlGetInt(master, unix.TIOCGPTN)
	if err != nil {
		unix.Close(master)
		return -1, "", fmt.Errorf("get pty number (TIOCGPTN): %w", err)
	}

	if err := unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0); err != nil {
		unix.Close(master)
		return -1, "", fmt.Errorf("unlock pty slave (TIOCSPTLCK): %w", err)
	}

	slavePath = fmt.Sprintf("/dev/pts/%d", ptyNumber)
	return master, slavePath, nil
}
