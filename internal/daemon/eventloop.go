// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/ghostly-sh/ghostly/internal/frame"
	"github.com/ghostly-sh/ghostly/internal/registry"
)

// Run drives the single-threaded readiness loop until shutdown is
// requested by a reaped child, a terminating signal, or a PTY hangup.
// It always ends by running the shutdown sequence exactly once, even
// if the loop itself exits through an error path.
func (s *Server) Run() error {
	s.running.Store(true)

	for s.running.Load() {
		fds := s.buildPollFDs()
		n, err := unix.Poll(fds, int(pollTimeout.Milliseconds()))
		s.consumeSignalFlags()
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			s.logger.Error("poll failed", "error", err)
			break
		}
		if !s.running.Load() {
			break
		}
		if n == 0 {
			continue
		}
		s.handleReadiness(fds)
	}

	return s.shutdown()
}

// buildPollFDs lays out the listener first, the PTY master second, and
// one entry per attached client after — a fixed layout the readiness
// handler relies on to map slots back to meaning.
func (s *Server) buildPollFDs() []unix.PollFd {
	fds := make([]unix.PollFd, 2+len(s.clients))
	fds[0] = unix.PollFd{Fd: int32(s.lstnr.fd), Events: unix.POLLIN}
	fds[1] = unix.PollFd{Fd: int32(s.host.MasterFD), Events: unix.POLLIN}
	for i, c := range s.clients {
		fds[2+i] = unix.PollFd{Fd: int32(c.fd), Events: unix.POLLIN}
	}
	return fds
}

// consumeSignalFlags applies any flags the signal-handling goroutine
// set since the last iteration. This is the only place SIGCHLD/SIGTERM
// notifications turn into actual work.
func (s *Server) consumeSignalFlags() {
	if s.sigchld.CompareAndSwap(true, false) {
		reaped, err := s.host.Reap()
		if err != nil {
			s.logger.Error("reap child", "error", err)
		}
		if reaped {
			s.logger.Info("child exited", "code", s.host.ExitCode())
			s.exitCode.Store(int32(s.host.ExitCode()))
			s.running.Store(false)
		}
	}
	if s.sigterm.CompareAndSwap(true, false) {
		s.logger.Info("received SIGTERM, shutting down")
		s.running.Store(false)
	}
}

func (s *Server) handleReadiness(fds []unix.PollFd) {
	if fds[1].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
		s.drainMaster()
	}
	if fds[0].Revents&unix.POLLIN != 0 {
		s.acceptOne()
	}
	// Back-to-front so a removal never shifts an index we still need
	// to visit in this same pass.
	for i := len(s.clients) - 1; i >= 0; i-- {
		if 2+i >= len(fds) {
			continue
		}
		if fds[2+i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			s.serviceClient(i)
		}
	}
}

// drainMaster reads whatever the PTY produced this cycle and fans it
// out as a single DATA frame. A read error other than EAGAIN, or a
// zero-byte read, means the slave side closed — the child is gone or
// about to be — and requests shutdown.
func (s *Server) drainMaster() {
	buf := make([]byte, 4096)
	n, err := s.host.Read(buf)
	if n > 0 {
		s.broadcast(frame.NewData(buf[:n]))
	}
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		s.logger.Debug("pty master closed", "error", err)
		s.running.Store(false)
		return
	}
	if n == 0 {
		s.running.Store(false)
	}
}

// broadcast sends f to every attached client, dropping any client a
// send fails on. Iterates back-to-front so drops are removal-safe.
func (s *Server) broadcast(f frame.Frame) {
	for i := len(s.clients) - 1; i >= 0; i-- {
		c := s.clients[i]
		if err := frame.Write(c.stream(), f); err != nil {
			if isTimeoutOrClosed(err) {
				s.logger.Debug("client write failed, dropping", "client", c.id, "error", err)
			} else {
				s.logger.Warn("client write failed, dropping", "client", c.id, "error", err)
			}
			s.removeClient(i)
		}
	}
}

// acceptOne admits at most one new connection per event-loop tick,
// which is sufficient because the only shared mutable state is the
// client table itself and every admission is independent of every
// other.
func (s *Server) acceptOne() {
	fd, err := s.lstnr.accept()
	if err != nil {
		if err != unix.EAGAIN {
			s.logger.Debug("accept failed", "error", err)
		}
		return
	}

	if len(s.clients) >= maxClients {
		unix.Close(fd)
		return
	}

	if err := setRecvTimeout(fd, helloTimeout); err != nil {
		unix.Close(fd)
		return
	}

	hello, err := frame.Read(fdStream{fd: fd})
	if err != nil || !frame.IsValidHello(hello) {
		unix.Close(fd)
		return
	}

	columns, rows, err := frame.ParseSize(hello.Payload)
	if err != nil {
		unix.Close(fd)
		return
	}
	if err := s.host.SetWindowSize(columns, rows); err != nil {
		s.logger.Debug("set initial window size", "error", err)
	}

	if err := setRecvTimeout(fd, operationalTimeout); err != nil {
		unix.Close(fd)
		return
	}
	_ = setSendTimeout(fd, operationalTimeout)

	c := &client{id: uuid.New(), fd: fd, admittedAt: s.clock.Now()}
	s.clients = append(s.clients, c)
	s.logger.Info("client attached", "client", c.id, "clients", s.clientCount())
	s.syncClientCount()
}

// serviceClient reads and dispatches one frame from the client at
// index i, removing the client on any I/O or protocol failure.
func (s *Server) serviceClient(i int) {
	c := s.clients[i]
	f, err := frame.Read(c.stream())
	if err != nil {
		if !isTimeoutOrClosed(err) {
			s.logger.Warn("client read failed, dropping", "client", c.id, "error", err)
		}
		s.removeClient(i)
		return
	}

	switch f.Type {
	case frame.Data:
		if len(f.Payload) > 0 {
			if err := s.writeToMaster(f.Payload); err != nil {
				s.logger.Debug("write to pty master failed, dropping frame", "error", err)
			}
		}
	case frame.Winch:
		columns, rows, err := frame.ParseSize(f.Payload)
		if err != nil {
			return
		}
		if err := s.host.SetWindowSize(columns, rows); err != nil {
			s.logger.Debug("resize failed", "error", err)
		}
	case frame.Detach:
		s.removeClient(i)
	default:
		// Unknown or malformed: ignored for forward compatibility.
	}
}

// removeClient closes and drops the client at index i, then rewrites
// the info file's client count. Safe to call from within a
// back-to-front loop over s.clients.
func (s *Server) removeClient(i int) {
	c := s.clients[i]
	c.close()
	s.clients = append(s.clients[:i], s.clients[i+1:]...)
	s.logger.Info("client detached", "client", c.id, "clients", s.clientCount())
	s.syncClientCount()
}

// syncClientCount rewrites the info file so clients= reflects the
// current attached count. Best-effort: a failure here is logged but
// never aborts the session.
func (s *Server) syncClientCount() {
	info := registry.Info{
		PID:     unix.Getpid(),
		Clients: s.clientCount(),
		Created: s.createdAt.Unix(),
		Cmd:     s.host.Command,
	}
	if err := registry.WriteInfo(s.paths.Info, info); err != nil {
		s.logger.Error("update info file", "error", err)
	}
}

// writeToMaster performs a bounded-retry write to the non-blocking PTY
// master: on EAGAIN it polls for writability up to masterWriteTimeout
// total, never busy-looping; if the deadline passes the frame is
// dropped without affecting the session.
func (s *Server) writeToMaster(payload []byte) error {
	deadline := s.clock.Now().Add(masterWriteTimeout)
	written := 0
	for written < len(payload) {
		n, err := s.host.Write(payload[written:])
		if err != nil {
			if err != unix.EAGAIN {
				return err
			}
			remaining := deadline.Sub(s.clock.Now())
			if remaining <= 0 {
				return fmt.Errorf("daemon: write to pty master timed out")
			}
			pollFDs := []unix.PollFd{{Fd: int32(s.host.MasterFD), Events: unix.POLLOUT}}
			if _, perr := unix.Poll(pollFDs, int(remaining.Milliseconds())); perr != nil && perr != unix.EINTR {
				return perr
			}
			continue
		}
		written += n
	}
	return nil
}
