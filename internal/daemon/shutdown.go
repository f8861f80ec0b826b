// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/ghostly-sh/ghostly/internal/frame"
	"github.com/ghostly-sh/ghostly/internal/registry"
)

// shutdown runs the teardown sequence exactly once, however Run exited.
func (s *Server) shutdown() error {
	var result error
	s.shutdownOnce.Do(func() {
		result = s.runShutdown()
	})
	return result
}

// runShutdown escalates signals to an unreaped child, broadcasts the
// terminal EXIT frame, closes every descriptor, and erases the
// session's registry files. It is written to make forward progress
// even when a step fails — shutdown must complete regardless.
func (s *Server) runShutdown() error {
	if !s.host.Reaped() {
		s.escalate()
	}

	// Combine any exit status observed just now with whatever SIGCHLD
	// already recorded; the host itself is the single source of truth
	// once reaped, so it always wins when set.
	if s.host.Reaped() {
		s.exitCode.Store(int32(s.host.ExitCode()))
	}

	s.broadcast(frame.NewExit(byte(s.exitCode.Load())))

	for _, c := range s.clients {
		c.close()
	}
	s.clients = nil

	if err := s.lstnr.close(); err != nil {
		s.logger.Debug("close listener", "error", err)
	}
	if err := s.host.Close(); err != nil {
		s.logger.Debug("close pty master", "error", err)
	}

	if err := registry.Remove(s.root, s.name); err != nil {
		s.logger.Error("remove registry files", "error", err)
		return err
	}
	return nil
}

// escalate sends SIGHUP, waits, then SIGTERM, waits, then SIGKILL and
// blocks until the child is gone. Each step re-checks reap status
// before escalating further so a child that dies promptly short-circuits
// the remaining waits.
func (s *Server) escalate() {
	if s.trySignalAndReap(unix.SIGHUP, shutdownHangupWait) {
		return
	}
	if s.trySignalAndReap(unix.SIGTERM, shutdownTermWait) {
		return
	}
	if err := s.host.Signal(unix.SIGKILL); err != nil {
		s.logger.Debug("sigkill", "error", err)
	}
	if err := s.host.ReapBlocking(); err != nil {
		s.logger.Error("blocking reap after sigkill", "error", err)
	}
}

// trySignalAndReap sends sig, waits for wait, then attempts a
// non-blocking reap and reports whether the child is now gone.
func (s *Server) trySignalAndReap(sig unix.Signal, wait time.Duration) bool {
	if err := s.host.Signal(sig); err != nil {
		s.logger.Debug("signal child", "signal", sig, "error", err)
	}
	s.clock.Sleep(wait)
	reaped, err := s.host.Reap()
	if err != nil {
		s.logger.Error("reap during escalation", "error", err)
	}
	return reaped
}
