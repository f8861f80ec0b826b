// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"errors"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// fdStream adapts a raw file descriptor to io.Reader/io.Writer for use
// with internal/frame, retrying EINTR transparently so a signal
// delivered mid-syscall never surfaces as a frame-level error.
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

// setRecvTimeout applies SO_RCVTIMEO to fd, the kernel-enforced half of
// the admission and operational receive timeouts.
func setRecvTimeout(fd int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// setSendTimeout applies SO_SNDTIMEO to fd so a client that never
// drains its read buffer cannot wedge the fan-out path forever.
func setSendTimeout(fd int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)
}

// isTimeoutOrClosed reports whether err is the expected shape of "this
// peer went away or stopped responding" rather than an unexpected
// system error. Callers drop the peer either way, but only the
// unexpected case is worth a louder log line.
func isTimeoutOrClosed(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, io.EOF) ||
		errors.Is(err, unix.ECONNRESET) || errors.Is(err, unix.EPIPE)
}
