// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry implements ghostly's on-disk session registry: the
// per-user directory that names a running session's socket, pid file,
// and info file, plus the enumeration and staleness rules that make
// discovery safe without a central lock.
package registry

import "fmt"

// maxNameLength is the longest a session name may be.
const maxNameLength = 64

// ValidateName reports whether name is a legal session name: 1..64
// bytes drawn from [A-Za-z0-9._-], excluding the reserved names "."
// and "..". Any name read back from the registry that fails this
// check is treated as if the session did not exist.
func ValidateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("registry: session name must not be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("registry: session name %q exceeds %d bytes", name, maxNameLength)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("registry: session name %q is reserved", name)
	}
	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i]) {
			return fmt.Errorf("registry: session name %q contains invalid character %q", name, name[i])
		}
	}
	return nil
}

func isNameByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z':
		return true
	case b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '.' || b == '_' || b == '-':
		return true
	default:
		return false
	}
}
