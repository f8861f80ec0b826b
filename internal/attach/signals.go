// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// winchWatcher tracks pending SIGWINCH notifications via an atomic
// flag, touched only by the forwarding goroutine below and consumed by
// the main poll loop — the same split the daemon uses for SIGCHLD and
// SIGTERM.
type winchWatcher struct {
	pending atomic.Bool
	channel chan os.Signal
}

func newWinchWatcher() *winchWatcher {
	w := &winchWatcher{channel: make(chan os.Signal, 4)}
	signal.Notify(w.channel, syscall.SIGWINCH)
	go func() {
		for range w.channel {
			w.pending.Store(true)
		}
	}()
	return w
}

func (w *winchWatcher) consume() bool {
	return w.pending.CompareAndSwap(true, false)
}

func (w *winchWatcher) stop() {
	signal.Stop(w.channel)
	close(w.channel)
}
