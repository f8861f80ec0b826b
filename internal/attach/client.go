// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/ghostly-sh/ghostly/internal/frame"
	"github.com/ghostly-sh/ghostly/internal/registry"
	"github.com/ghostly-sh/ghostly/lib/clierr"
)

// DetachByte is the byte value (Ctrl+\) that, found anywhere in a
// chunk read from standard input, ends the session without killing it.
const DetachByte = 0x1C

const pollBudget = 500 * time.Millisecond

const readBufferSize = 4096

// Attach connects to name's session, puts the local terminal into raw
// mode, and relays bytes until the user detaches, the session exits,
// or either side hangs up. It returns the exit code to report to the
// shell that invoked ghostly.
func Attach(name string) (int, error) {
	if err := registry.ValidateName(name); err != nil {
		return 1, clierr.Validation("%w", err)
	}

	signal.Ignore(syscall.SIGPIPE)

	root := registry.Root(unix.Getuid())
	paths := registry.PathsFor(root, name)
	if err := registry.ValidateSocketPath(paths.Socket); err != nil {
		return 1, clierr.Validation("%w", err)
	}

	socketFD, err := connectSocket(paths.Socket)
	if err != nil {
		return 1, clierr.NotFound("session %q is not running", name)
	}
	defer unix.Close(socketFD)

	columns, rows := terminalSize()
	if err := frame.Write(fdStream{fd: socketFD}, frame.NewHello(columns, rows)); err != nil {
		return 1, clierr.Internal("send hello: %w", err)
	}

	stdinFD := int(os.Stdin.Fd())
	var restoreOnce sync.Once
	restore := func() {}
	if term.IsTerminal(stdinFD) {
		oldState, rawErr := term.MakeRaw(stdinFD)
		if rawErr == nil {
			restore = func() { restoreOnce.Do(func() { term.Restore(stdinFD, oldState) }) }
		}
	}
	defer restore()

	winch := newWinchWatcher()
	defer winch.stop()

	exitCode, detached, err := runLoop(stdinFD, socketFD, columns, rows, winch)

	restore()
	if detached {
		fmt.Fprintf(os.Stderr, "[detached from %s]\n", name)
	}
	return exitCode, err
}

// runLoop is the attach client's readiness loop: a poll with a 500ms
// budget over stdin and the session socket, handling SIGWINCH,
// detach-key scanning, and frame dispatch until one of the descriptors
// signals the session is over.
func runLoop(stdinFD, socketFD int, columns, rows uint16, winch *winchWatcher) (exitCode int, detached bool, err error) {
	sock := fdStream{fd: socketFD}
	buf := make([]byte, readBufferSize)

	for {
		if winch.consume() {
			columns, rows = terminalSize()
			if werr := frame.Write(sock, frame.NewWinch(columns, rows)); werr != nil {
				return 0, false, nil
			}
		}

		pollFDs := []unix.PollFd{
			{Fd: int32(stdinFD), Events: unix.POLLIN},
			{Fd: int32(socketFD), Events: unix.POLLIN},
		}
		n, perr := unix.Poll(pollFDs, int(pollBudget.Milliseconds()))
		if perr != nil {
			if perr == unix.EINTR {
				continue
			}
			return exitCode, detached, fmt.Errorf("attach: poll: %w", perr)
		}
		if n == 0 {
			continue
		}

		if pollFDs[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			return exitCode, detached, nil
		}
		if pollFDs[1].Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			return exitCode, detached, nil
		}

		if pollFDs[0].Revents&unix.POLLIN != 0 {
			read, rerr := unix.Read(stdinFD, buf)
			if rerr != nil && rerr != unix.EINTR {
				return exitCode, detached, nil
			}
			if read > 0 {
				chunk := buf[:read]
				if containsDetach(chunk) {
					_ = frame.Write(sock, frame.NewDetach())
					return 0, true, nil
				}
				if werr := frame.Write(sock, frame.NewData(chunk)); werr != nil {
					return exitCode, detached, nil
				}
			}
		}

		if pollFDs[1].Revents&unix.POLLIN != 0 {
			f, rerr := frame.Read(sock)
			if rerr != nil {
				return exitCode, detached, nil
			}
			switch f.Type {
			case frame.Data:
				if len(f.Payload) > 0 {
					if werr := writeFull(os.Stdout, f.Payload); werr != nil {
						return exitCode, detached, nil
					}
				}
			case frame.Exit:
				if len(f.Payload) == 1 {
					exitCode = int(f.Payload[0])
				}
				return exitCode, detached, nil
			default:
				// Ignored for forward compatibility.
			}
		}
	}
}

// containsDetach reports whether chunk contains the detach byte
// anywhere. Per the resolved design choice, finding it anywhere in a
// read aborts the whole chunk — nothing in it (before or after the
// detach byte) is forwarded.
func containsDetach(chunk []byte) bool {
	for _, b := range chunk {
		if b == DetachByte {
			return true
		}
	}
	return false
}

func writeFull(f *os.File, buf []byte) error {
	for len(buf) > 0 {
		n, err := f.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
