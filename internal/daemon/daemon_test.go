// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ghostly-sh/ghostly/internal/frame"
	"github.com/ghostly-sh/ghostly/internal/ptyhost"
	"github.com/ghostly-sh/ghostly/internal/registry"
	"github.com/ghostly-sh/ghostly/lib/clock"
	"golang.org/x/sys/unix"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBindListenerModeAndAccept(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "session.sock")

	lstnr, err := bindListener(path)
	if err != nil {
		t.Fatalf("bindListener: %v", err)
	}
	defer lstnr.close()

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if stat.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", stat.Mode().Perm())
	}

	done := make(chan struct{})
	go func() {
		conn, dialErr := net.Dial("unix", path)
		if dialErr == nil {
			conn.Close()
		}
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		fd, acceptErr := lstnr.accept()
		if acceptErr == nil {
			unix.Close(fd)
			<-done
			return
		}
		if acceptErr != unix.EAGAIN {
			t.Fatalf("accept: %v", acceptErr)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("never accepted the dialed connection")
}

func TestFDStreamFrameRoundTrip(t *testing.T) {
	t.Parallel()
	readFD, writeFD, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer readFD.Close()
	defer writeFD.Close()

	writer := fdStream{fd: int(writeFD.Fd())}
	reader := fdStream{fd: int(readFD.Fd())}

	want := frame.NewData([]byte("hello from a raw fd"))
	go func() {
		_ = frame.Write(writer, want)
	}()

	got, err := frame.Read(reader)
	if err != nil {
		t.Fatalf("frame.Read: %v", err)
	}
	if got.Type != want.Type || string(got.Payload) != string(want.Payload) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestIsTimeoutOrClosed(t *testing.T) {
	t.Parallel()
	if !isTimeoutOrClosed(unix.EAGAIN) {
		t.Error("EAGAIN should count as timeout/closed")
	}
	if !isTimeoutOrClosed(io.EOF) {
		t.Error("EOF should count as timeout/closed")
	}
	if isTimeoutOrClosed(unix.EACCES) {
		t.Error("EACCES should not count as timeout/closed")
	}
}

// TestServerHandshakeEchoAndShutdown exercises the admission handshake,
// PTY fan-out, and a signal-driven shutdown end to end. It needs a
// real /dev/ptmx and a real shell, so it is skipped under -short.
func TestServerHandshakeEchoAndShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real pty and unix socket")
	}
	t.Parallel()

	dir := t.TempDir()
	paths := registry.Paths{
		Socket: filepath.Join(dir, "test.sock"),
		PID:    filepath.Join(dir, "test.pid"),
		Info:   filepath.Join(dir, "test.info"),
	}

	host, err := ptyhost.Spawn("/bin/sh", "cat")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	lstnr, err := bindListener(paths.Socket)
	if err != nil {
		t.Fatalf("bindListener: %v", err)
	}

	server := newServer("test", dir, paths, host, lstnr, clock.Real(), discardLogger())

	runErr := make(chan error, 1)
	go func() { runErr <- server.Run() }()

	conn, err := net.Dial("unix", paths.Socket)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := frame.Write(conn, frame.NewHello(80, 24)); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	if err := frame.Write(conn, frame.NewData([]byte("echo-me\n"))); err != nil {
		t.Fatalf("write data: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	found := false
	for !found {
		f, readErr := frame.Read(conn)
		if readErr != nil {
			t.Fatalf("read frame: %v", readErr)
		}
		if f.Type == frame.Data && strings.Contains(string(f.Payload), "echo-me") {
			found = true
		}
	}

	server.sigterm.Store(true)
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after SIGTERM flag")
	}

	for _, p := range []string{paths.Socket, paths.PID, paths.Info} {
		if _, statErr := os.Stat(p); !os.IsNotExist(statErr) {
			t.Errorf("%s should have been removed on shutdown", p)
		}
	}
}
