// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"os"

	"golang.org/x/term"
)

// fallbackColumns and fallbackRows are used when standard input is not
// a terminal (piped input, a test harness) and a size still has to be
// sent in HELLO.
const (
	fallbackColumns = 80
	fallbackRows    = 24
)

// terminalSize reports the current dimensions of stdin, falling back
// to 80x24 when stdin is not a terminal.
func terminalSize() (columns, rows uint16) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fallbackColumns, fallbackRows
	}
	width, height, err := term.GetSize(fd)
	if err != nil {
		return fallbackColumns, fallbackRows
	}
	return uint16(width), uint16(height)
}
