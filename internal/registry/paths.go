// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"path/filepath"
)

// maxSocketPathLength is the length of the sun_path array in struct
// sockaddr_un on Linux (and most other unixes). A path at or beyond
// this length cannot be passed to bind(2)/connect(2) — silently
// truncating it would connect to the wrong session, so callers must
// reject it up front.
const maxSocketPathLength = 108

// Paths names the three registry files for a single session, sharing
// the session name as stem.
type Paths struct {
	Socket string
	PID    string
	Info   string
}

// Root returns the per-user registry root for the given numeric user
// id: /tmp/ghostly-<uid>/.
func Root(uid int) string {
	return filepath.Join("/tmp", fmt.Sprintf("ghostly-%d", uid))
}

// PathsFor returns the deterministic file triple for a validated
// session name under root. Callers must validate name first —
// PathsFor does not re-validate.
func PathsFor(root, name string) Paths {
	return Paths{
		Socket: filepath.Join(root, name+".sock"),
		PID:    filepath.Join(root, name+".pid"),
		Info:   filepath.Join(root, name+".info"),
	}
}

// ValidateSocketPath rejects a socket path that the kernel's local
// address family cannot represent. Checked before every bind or
// connect, never after.
func ValidateSocketPath(path string) error {
	if len(path) >= maxSocketPathLength {
		return fmt.Errorf("registry: socket path %q (%d bytes) exceeds kernel limit of %d bytes",
			path, len(path), maxSocketPathLength-1)
	}
	return nil
}
