// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// client is one admitted, attached connection. Everything here is
// touched only from the event-loop goroutine.
type client struct {
	id         uuid.UUID
	fd         int
	admittedAt time.Time
}

func (c *client) stream() fdStream { return fdStream{fd: c.fd} }

func (c *client) close() {
	unix.Close(c.fd)
}
