// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/ghostly-sh/ghostly/internal/daemon"
	"github.com/ghostly-sh/ghostly/internal/registry"
	"github.com/ghostly-sh/ghostly/lib/clierr"
)

// Open attaches to name if it already has a live daemon; otherwise it
// cleans any stale registry entry, creates a fresh session, and
// attaches to that.
func Open(name, command string) (int, error) {
	if err := registry.ValidateName(name); err != nil {
		return 1, clierr.Validation("%w", err)
	}

	root := registry.Root(unix.Getuid())
	paths := registry.PathsFor(root, name)

	if registry.IsSessionAlive(paths.PID) {
		if _, err := os.Stat(paths.Socket); err == nil {
			return Attach(name)
		}
	}
	_ = registry.Remove(root, name)

	if err := daemon.Create(name, command); err != nil {
		return 1, err
	}
	return Attach(name)
}
