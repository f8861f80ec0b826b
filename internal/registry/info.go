// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Info is the parsed content of a session's info file: a tiny
// key/value text file describing the session for `list`/`info`
// consumers without requiring them to connect to the socket.
type Info struct {
	PID     int
	Clients int
	Created int64
	Cmd     string
}

// WriteInfo writes the info file atomically (temporary file, fsync,
// rename into place) so a concurrent reader never observes a partial
// write. Lines are written in the canonical order — pid, clients,
// created, cmd — though readers must tolerate any order.
func WriteInfo(path string, info Info) error {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "pid=%d\n", info.PID)
	fmt.Fprintf(&buffer, "clients=%d\n", info.Clients)
	fmt.Fprintf(&buffer, "created=%d\n", info.Created)
	fmt.Fprintf(&buffer, "cmd=%s\n", info.Cmd)

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("registry: create temporary info file: %w", err)
	}
	if _, err := file.Write(buffer.Bytes()); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("registry: write temporary info file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("registry: sync temporary info file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("registry: close temporary info file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("registry: rename info file into place: %w", err)
	}
	return nil
}

// ReadInfo parses an info file. Lines may appear in any order; unknown
// or malformed lines are ignored so the format can grow extra fields
// without breaking older readers.
func ReadInfo(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}

	var info Info
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch key {
		case "pid":
			info.PID, _ = strconv.Atoi(value)
		case "clients":
			info.Clients, _ = strconv.Atoi(value)
		case "created":
			info.Created, _ = strconv.ParseInt(value, 10, 64)
		case "cmd":
			info.Cmd = value
		}
	}
	return info, scanner.Err()
}
