// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

// Package daemon implements the client multiplexer and the daemon
// lifecycle: the long-running process that owns one PTY session,
// accepts local socket connections, fans the shell's output out to
// every attached client, funnels their input back into the shell, and
// tears the session down cleanly on exit.
package daemon

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghostly-sh/ghostly/internal/ptyhost"
	"github.com/ghostly-sh/ghostly/internal/registry"
	"github.com/ghostly-sh/ghostly/lib/clock"
)

const (
	// maxClients is the hard cap on simultaneously attached clients.
	maxClients = 16

	helloTimeout       = 2 * time.Second
	operationalTimeout = 30 * time.Second
	pollTimeout        = 1 * time.Second
	masterWriteTimeout = 1 * time.Second

	shutdownHangupWait = 50 * time.Millisecond
	shutdownTermWait   = 100 * time.Millisecond
)

// Server holds all daemon state. Every field is owned exclusively by
// the event-loop goroutine except the two flags signal handling sets,
// which are atomics precisely so a concurrently-delivered signal never
// needs to touch anything else.
type Server struct {
	name    string
	root    string
	paths   registry.Paths
	host    *ptyhost.Host
	lstnr   *listener
	clients []*client
	clock   clock.Clock
	logger  *slog.Logger

	createdAt time.Time

	running      atomic.Bool
	sigchld      atomic.Bool
	sigterm      atomic.Bool
	shutdownOnce sync.Once
	exitCode     atomic.Int32
}

// newServer wires up an already-spawned PTY host and an already-bound
// listener into an idle Server. Run starts the event loop.
func newServer(name, root string, paths registry.Paths, host *ptyhost.Host, lstnr *listener, clk clock.Clock, logger *slog.Logger) *Server {
	return &Server{
		name:      name,
		root:      root,
		paths:     paths,
		host:      host,
		lstnr:     lstnr,
		clock:     clk,
		logger:    logger,
		createdAt: clk.Now(),
	}
}

// ExitCode returns the child's recorded exit code once Run has
// returned. The daemon process mirrors this as its own exit status.
func (s *Server) ExitCode() int { return int(s.exitCode.Load()) }

// clientCount reports the number of currently attached clients.
func (s *Server) clientCount() int { return len(s.clients) }

// requestSIGCHLD and requestSIGTERM are called from the signal-handling
// goroutine only. They must never block or perform I/O.
func (s *Server) requestSIGCHLD() { s.sigchld.Store(true) }
func (s *Server) requestSIGTERM() { s.sigterm.Store(true) }
