// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ghostly-sh/ghostly/internal/config"
	"github.com/ghostly-sh/ghostly/internal/ptyhost"
	"github.com/ghostly-sh/ghostly/internal/registry"
	"github.com/ghostly-sh/ghostly/lib/clierr"
	"github.com/ghostly-sh/ghostly/lib/clock"
)

// ReexecArg is the hidden first argument cmd/ghostly recognizes to
// mean "I am the re-executed daemon body, not the interactive CLI".
// Create passes it when launching the detached process; a real
// fork(2)-based double fork (the textbook Unix daemonization
// sequence) isn't available to a Go process without risking the
// runtime's own thread and goroutine bookkeeping, so the idiomatic Go
// substitute is a single re-exec of the same binary with
// Setsid: true, which detaches from the controlling terminal just as
// effectively. The original invoker (Create, below) fills the role of
// the two exiting intermediate forks by returning as soon as it
// observes the socket appear.
const ReexecArg = "__ghostly-daemon__"

const socketPollInterval = 20 * time.Millisecond
const socketPollTimeout = 1 * time.Second

// Create daemonises a new session named name running command (or a
// login shell if command is empty). It returns once the session's
// socket has appeared, or with an error if creation was refused or
// timed out.
func Create(name, command string) error {
	if err := registry.ValidateName(name); err != nil {
		return clierr.Validation("%w", err)
	}

	root := registry.Root(unix.Getuid())
	if err := registry.EnsureRoot(root); err != nil {
		return clierr.Internal("%w", err)
	}

	paths := registry.PathsFor(root, name)
	if err := registry.ValidateSocketPath(paths.Socket); err != nil {
		return clierr.Validation("%w", err)
	}

	lock, err := registry.AcquireCreateLock(paths.PID)
	if err != nil {
		return clierr.Conflict("session %q is already being created", name)
	}
	defer lock.Release()

	if registry.IsSessionAlive(paths.PID) {
		if _, statErr := os.Stat(paths.Socket); statErr == nil {
			return clierr.Conflict("session %q already exists", name)
		}
	}
	// Either there was no live daemon, or it has a PID but no socket
	// yet (impossible in steady state) — either way, clear whatever
	// stale files are left before claiming the name.
	_ = registry.Remove(root, name)

	executable, err := os.Executable()
	if err != nil {
		return clierr.Internal("resolve own executable path: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return clierr.Internal("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	daemonProcess := exec.Command(executable, ReexecArg, name, command)
	daemonProcess.Stdin = devNull
	daemonProcess.Stdout = devNull
	daemonProcess.Stderr = devNull
	daemonProcess.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := daemonProcess.Start(); err != nil {
		return clierr.Internal("start daemon process: %w", err)
	}
	_ = daemonProcess.Process.Release()

	if err := waitForSocket(paths.Socket, socketPollTimeout); err != nil {
		return clierr.Internal("%w", err)
	}
	return nil
}

func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		time.Sleep(socketPollInterval)
	}
	return clierr.Internal("timed out waiting for session %s to start", path)
}

// RunDaemon is the body of the re-executed, detached process: it
// redirects its own standard streams, forks the PTY child, binds the
// listening socket, writes the registry files, installs signal
// handling, and runs the event loop until shutdown. It calls os.Exit
// directly with the child's recorded exit code, matching the spec's
// "process return code mirrors the child's recorded exit code".
func RunDaemon(name, command string) {
	redirectStandardStreamsToDevNull()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("session", name)

	root := registry.Root(unix.Getuid())
	if err := registry.EnsureRoot(root); err != nil {
		logger.Error("ensure registry root", "error", err)
		os.Exit(1)
	}
	paths := registry.PathsFor(root, name)

	host, err := ptyhost.Spawn(config.Shell(), command)
	if err != nil {
		logger.Error("spawn pty host", "error", err)
		os.Exit(1)
	}

	lstnr, err := bindListener(paths.Socket)
	if err != nil {
		logger.Error("bind listener", "error", err)
		host.Close()
		os.Exit(1)
	}

	clk := clock.Real()

	if err := registry.WritePID(paths.PID, os.Getpid()); err != nil {
		logger.Error("write pid file", "error", err)
	}
	if err := registry.WriteInfo(paths.Info, registry.Info{
		PID:     os.Getpid(),
		Clients: 0,
		Created: clk.Now().Unix(),
		Cmd:     host.Command,
	}); err != nil {
		logger.Error("write info file", "error", err)
	}

	server := newServer(name, root, paths, host, lstnr, clk, logger)
	stopSignals := installSignals(server)
	defer stopSignals()

	if err := server.Run(); err != nil {
		logger.Error("event loop exited with error", "error", err)
	}
	os.Exit(server.ExitCode())
}

// redirectStandardStreamsToDevNull points fd 0, 1, and 2 at /dev/null,
// so nothing the daemon does after detaching can write to (or read
// from) whatever terminal launched it.
func redirectStandardStreamsToDevNull() {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return
	}
	defer devNull.Close()
	fd := int(devNull.Fd())
	unix.Dup2(fd, 0)
	unix.Dup2(fd, 1)
	unix.Dup2(fd, 2)
}

// Kill terminates the named session's daemon and erases its registry
// files, escalating from SIGTERM to SIGKILL if the daemon does not
// exit promptly.
func Kill(name string) error {
	if err := registry.ValidateName(name); err != nil {
		return clierr.Validation("%w", err)
	}

	root := registry.Root(unix.Getuid())
	paths := registry.PathsFor(root, name)

	pid, err := registry.ReadPID(paths.PID)
	if err != nil || !registry.IsAlive(pid) {
		_ = registry.Remove(root, name)
		return clierr.NotFound("session %q not found", name)
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		_ = registry.Remove(root, name)
		return clierr.NotFound("session %q not found", name)
	}

	if pollLiveness(pid, time.Second, 50*time.Millisecond) {
		_ = registry.Remove(root, name)
		return nil
	}

	_ = unix.Kill(pid, unix.SIGKILL)
	pollLiveness(pid, 500*time.Millisecond, 20*time.Millisecond)

	return registry.Remove(root, name)
}

// pollLiveness polls pid's liveness until it is dead or timeout
// elapses, returning true if it observed the process die.
func pollLiveness(pid int, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !registry.IsAlive(pid) {
			return true
		}
		time.Sleep(interval)
	}
	return !registry.IsAlive(pid)
}
