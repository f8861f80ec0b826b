// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// listener owns the daemon's listening unix-domain socket as a raw,
// non-blocking file descriptor so it can sit in the same unix.Poll set
// as the PTY master and every attached client.
type listener struct {
	fd   int
	path string
}

// bindListener unlinks any pre-existing socket node at path, binds a
// fresh SOCK_STREAM socket there, forces its mode to 0600, and starts
// listening.
func bindListener(path string) (*listener, error) {
	_ = unix.Unlink(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("daemon: create socket: %w", err)
	}

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("daemon: bind %s: %w", path, err)
	}

	if err := os.Chmod(path, 0o600); err != nil {
		unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, fmt.Errorf("daemon: chmod %s: %w", path, err)
	}

	if err := unix.Listen(fd, maxClients); err != nil {
		unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, fmt.Errorf("daemon: listen %s: %w", path, err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, fmt.Errorf("daemon: set listener non-blocking: %w", err)
	}

	return &listener{fd: fd, path: path}, nil
}

// accept returns the fd of a newly connected client, or (-1, unix.EAGAIN)
// if the listener is non-blocking and no connection is pending.
func (l *listener) accept() (int, error) {
	fd, _, err := unix.Accept(l.fd)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

func (l *listener) close() error {
	return unix.Close(l.fd)
}
