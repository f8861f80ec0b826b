// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package ptyhost

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func waitForReap(t *testing.T, host *Host, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		reaped, err := host.Reap()
		if err != nil {
			t.Fatalf("Reap: %v", err)
		}
		if reaped || host.Reaped() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("child was not reaped within %s", timeout)
}

func TestSpawnRunsCommandAndReapsExitCode(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real pty and child process")
	}
	t.Parallel()

	host, err := Spawn("/bin/sh", "exit 7")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer host.Close()

	waitForReap(t, host, 2*time.Second)
	if host.ExitCode() != 7 {
		t.Errorf("ExitCode() = %d, want 7", host.ExitCode())
	}
}

func TestSpawnProducesOutputOnMaster(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real pty and child process")
	}
	t.Parallel()

	host, err := Spawn("/bin/sh", "echo hello")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer host.Close()

	deadline := time.Now().Add(2 * time.Second)
	var collected []byte
	for time.Now().Before(deadline) {
		buf := make([]byte, 4096)
		n, err := host.Read(buf)
		if err != nil {
			if err == unix.EAGAIN {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			break
		}
		collected = append(collected, buf[:n]...)
		if len(collected) > 0 {
			break
		}
	}
	if len(collected) == 0 {
		t.Fatal("expected some output from the child's echo")
	}
}

func TestSpawnExecFailureYieldsStatus127(t *testing.T) {
	t.Parallel()
	host, err := Spawn("/no/such/shell-binary-ghostly-test", "")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if !host.Reaped() {
		t.Fatal("exec-failure host should already be reaped")
	}
	if host.ExitCode() != ExecFailureExitCode {
		t.Errorf("ExitCode() = %d, want %d", host.ExitCode(), ExecFailureExitCode)
	}
}

func TestDecodeExitCode(t *testing.T) {
	t.Parallel()
	host, err := Spawn("/bin/sh", "kill -TERM $$")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer host.Close()
	if testing.Short() {
		t.Skip("spawns a real pty and child process")
	}
	waitForReap(t, host, 2*time.Second)
	if host.ExitCode() != 128+int(unix.SIGTERM) {
		t.Errorf("ExitCode() = %d, want %d", host.ExitCode(), 128+int(unix.SIGTERM))
	}
}
