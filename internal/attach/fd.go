// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"io"

	"golang.org/x/sys/unix"
)

// fdStream adapts a raw file descriptor to io.Reader/io.Writer for use
// with internal/frame, retrying EINTR transparently.
type fdStream struct {
	fd int
}

func (s fdStream) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

func (s fdStream) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := unix.Write(s.fd, p[total:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
