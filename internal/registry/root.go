// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"os"
	"syscall"
)

// rootMode is the mode every registry root is forced to. Only the
// owner may enter it — session sockets and pid files inside grant no
// protection of their own against a co-resident user who can traverse
// the directory.
const rootMode = 0o700

// EnsureRoot creates the per-user registry root if it does not exist,
// then verifies — with a non-following stat, so a symlink swapped in
// by another user can't redirect us — that the path is a real
// directory owned by the caller. It force-sets the mode to 0700
// whether or not the directory pre-existed.
//
// The symlink and wrong-owner cases are treated as a suspected attack
// and are fatal: EnsureRoot never falls back to "best effort" for
// them.
func EnsureRoot(root string) error {
	if err := os.Mkdir(root, rootMode); err != nil && !os.IsExist(err) {
		return fmt.Errorf("registry: create root %s: %w", root, err)
	}

	var stat syscall.Stat_t
	if err := syscall.Lstat(root, &stat); err != nil {
		return fmt.Errorf("registry: stat root %s: %w", root, err)
	}
	if stat.Mode&syscall.S_IFMT == syscall.S_IFLNK {
		return fmt.Errorf("registry: root %s is a symlink, refusing to use it", root)
	}
	if stat.Mode&syscall.S_IFMT != syscall.S_IFDIR {
		return fmt.Errorf("registry: root %s is not a directory", root)
	}
	if int(stat.Uid) != os.Getuid() {
		return fmt.Errorf("registry: root %s is owned by uid %d, not the caller", root, stat.Uid)
	}

	if err := os.Chmod(root, rootMode); err != nil {
		return fmt.Errorf("registry: force mode on root %s: %w", root, err)
	}

	return nil
}
