// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

// Package ptyhost owns the pseudoterminal and child shell for one
// session: allocating the PTY pair, forking the shell onto its slave
// side, propagating window-size changes, and turning a SIGCHLD into a
// decoded exit code.
package ptyhost

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// reapedSentinel marks Host.childPID once the child has been waited
// on, so a second SIGCHLD (or a stray poll-loop iteration) never
// double-reaps.
const reapedSentinel = -1

// ExecFailureExitCode is the status the child is defined to exit with
// when the shell binary itself cannot be executed.
const ExecFailureExitCode = 127

// Host owns the PTY master and the forked child shell for one
// session. All methods are meant to be called from a single
// goroutine — the daemon's event loop — except where noted.
type Host struct {
	MasterFD int
	ChildPID int
	Command  string // the displayed command, e.g. "bash" or the user's command string

	exitCode int
	reaped   bool
}

// Spawn allocates a PTY pair and forks shellPath onto the slave side.
// When command is empty the shell runs as a login shell (-l); when
// non-empty it is passed to a login shell via -c, matching how an
// interactive login session normally launches a one-off command.
//
// If shellPath cannot be resolved to an executable, Spawn does not
// fork at all — there is nothing useful to wait on — and instead
// synthesizes the same externally-observable outcome real exec
// failure would produce: a Host whose child is already reaped with
// exit code 127.
func Spawn(shellPath, command string) (*Host, error) {
	master, slavePath, err := openPTY()
	if err != nil {
		return nil, fmt.Errorf("ptyhost: allocate pty: %w", err)
	}

	displayCommand := "bash"
	if command != "" {
		displayCommand = command
	}

	resolvedShell, lookErr := exec.LookPath(shellPath)
	if lookErr != nil {
		unix.Close(master)
		return &Host{
			MasterFD: -1,
			ChildPID: reapedSentinel,
			Command:  displayCommand,
			exitCode: ExecFailureExitCode,
			reaped:   true,
		}, nil
	}

	slave, err := os.OpenFile(slavePath, os.O_RDWR, 0)
	if err != nil {
		unix.Close(master)
		return nil, fmt.Errorf("ptyhost: open pty slave %s: %w", slavePath, err)
	}
	defer slave.Close()

	var args []string
	if command != "" {
		args = []string{"-l", "-c", command}
	} else {
		args = []string{"-l"}
	}

	cmd := exec.Command(resolvedShell, args...)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0,
	}

	if err := cmd.Start(); err != nil {
		unix.Close(master)
		return nil, fmt.Errorf("ptyhost: start shell: %w", err)
	}

	if err := unix.SetNonblock(master, true); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		unix.Close(master)
		return nil, fmt.Errorf("ptyhost: set master non-blocking: %w", err)
	}

	// Releasing the *os.Process avoids leaking its wait bookkeeping
	// since we reap by pid via unix.Wait4 ourselves. Release resets
	// Process.Pid to -1, so the pid is captured first.
	childPID := cmd.Process.Pid
	cmd.Process.Release()

	return &Host{
		MasterFD: master,
		ChildPID: childPID,
		Command:  displayCommand,
	}, nil
}

// Read reads bytes from the PTY master. The master is non-blocking;
// callers poll for readability first and treat unix.EAGAIN as "no
// data right now", not an error.
func (h *Host) Read(buf []byte) (int, error) {
	return unix.Read(h.MasterFD, buf)
}

// Write writes bytes to the PTY master, returning however many bytes
// the kernel accepted. Callers under back-pressure retry the
// remainder themselves (see daemon's bounded-retry writer).
func (h *Host) Write(buf []byte) (int, error) {
	return unix.Write(h.MasterFD, buf)
}

// SetWindowSize applies new terminal dimensions to the PTY master via
// TIOCSWINSZ. This propagates SIGWINCH to the foreground process
// group on the slave side.
func (h *Host) SetWindowSize(columns, rows uint16) error {
	winsize := &unix.Winsize{Col: columns, Row: rows}
	return unix.IoctlSetWinsize(h.MasterFD, unix.TIOCSWINSZ, winsize)
}

// Reaped reports whether the child has already been waited on.
func (h *Host) Reaped() bool { return h.reaped }

// ExitCode returns the last recorded exit code. Only meaningful once
// Reaped returns true.
func (h *Host) ExitCode() int { return h.exitCode }

// Reap performs a non-blocking wait for the child. Safe to call from
// a SIGCHLD-driven flag check on the main event-loop path — it must
// never be called directly from a signal handler, only from code the
// handler merely flags.
//
// Returns true if the child was found to have exited during this
// call, and false when it finds nothing new (a still-running child,
// or one that was already reaped).
func (h *Host) Reap() (bool, error) {
	if h.reaped || h.ChildPID <= 0 {
		return false, nil
	}

	var status unix.WaitStatus
	pid, err := unix.Wait4(h.ChildPID, &status, unix.WNOHANG, nil)
	if err != nil {
		return false, fmt.Errorf("ptyhost: wait4: %w", err)
	}
	if pid == 0 {
		// Child is still running.
		return false, nil
	}

	h.exitCode = DecodeExitCode(status)
	h.reaped = true
	h.ChildPID = reapedSentinel
	return true, nil
}

// ReapBlocking performs a blocking wait for the child, used only by the
// final step of shutdown escalation once SIGKILL has been sent and the
// child's termination is no longer in question.
func (h *Host) ReapBlocking() error {
	if h.reaped || h.ChildPID <= 0 {
		return nil
	}
	var status unix.WaitStatus
	_, err := unix.Wait4(h.ChildPID, &status, 0, nil)
	if err != nil {
		return fmt.Errorf("ptyhost: wait4: %w", err)
	}
	h.exitCode = DecodeExitCode(status)
	h.reaped = true
	h.ChildPID = reapedSentinel
	return nil
}

// DecodeExitCode converts a wait status into the standard shell exit
// code convention: the exit status if the process exited normally, or
// 128+signal if it was killed by a signal.
func DecodeExitCode(status unix.WaitStatus) int {
	if status.Exited() {
		return status.ExitStatus()
	}
	if status.Signaled() {
		return 128 + int(status.Signal())
	}
	return 1
}

// Signal delivers sig to the child process. A no-op if the child has
// already been reaped.
func (h *Host) Signal(sig syscall.Signal) error {
	if h.reaped || h.ChildPID <= 0 {
		return nil
	}
	return unix.Kill(h.ChildPID, sig)
}

// Close releases the PTY master descriptor. Safe to call once; a
// negative MasterFD (the synthesized exec-failure case) is a no-op.
func (h *Host) Close() error {
	if h.MasterFD < 0 {
		return nil
	}
	fd := h.MasterFD
	h.MasterFD = -1
	return unix.Close(fd)
}
