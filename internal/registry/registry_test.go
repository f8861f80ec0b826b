// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		valid bool
	}{
		{"session1", true},
		{"my.session-1_2", true},
		{"", false},
		{".", false},
		{"..", false},
		{strings.Repeat("a", 64), true},
		{strings.Repeat("a", 65), false},
		{"has/slash", false},
		{"has\x00null", false},
		{"has space", false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateName(test.name)
			if test.valid && err != nil {
				t.Errorf("ValidateName(%q): got error %v, want nil", test.name, err)
			}
			if !test.valid && err == nil {
				t.Errorf("ValidateName(%q): got nil, want error", test.name)
			}
		})
	}
}

func TestPathsFor(t *testing.T) {
	t.Parallel()
	paths := PathsFor("/tmp/ghostly-1000", "work")
	if paths.Socket != "/tmp/ghostly-1000/work.sock" {
		t.Errorf("Socket = %q", paths.Socket)
	}
	if paths.PID != "/tmp/ghostly-1000/work.pid" {
		t.Errorf("PID = %q", paths.PID)
	}
	if paths.Info != "/tmp/ghostly-1000/work.info" {
		t.Errorf("Info = %q", paths.Info)
	}
}

func TestValidateSocketPathRejectsOversize(t *testing.T) {
	t.Parallel()
	longPath := "/tmp/" + strings.Repeat("a", maxSocketPathLength)
	if err := ValidateSocketPath(longPath); err == nil {
		t.Fatal("expected error for oversize socket path")
	}
	if err := ValidateSocketPath("/tmp/ghostly-1000/session.sock"); err != nil {
		t.Errorf("unexpected error for short path: %v", err)
	}
}

func TestEnsureRootCreatesAndForcesMode(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "ghostly-root")

	if err := EnsureRoot(root); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}

	stat, err := os.Stat(root)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if stat.Mode().Perm() != 0o700 {
		t.Errorf("mode = %v, want 0700", stat.Mode().Perm())
	}

	// Idempotent: a loosened mode is forced back to 0700.
	if err := os.Chmod(root, 0o755); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if err := EnsureRoot(root); err != nil {
		t.Fatalf("EnsureRoot (second call): %v", err)
	}
	stat, err = os.Stat(root)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if stat.Mode().Perm() != 0o700 {
		t.Errorf("mode after second EnsureRoot = %v, want 0700", stat.Mode().Perm())
	}
}

func TestEnsureRootRejectsSymlink(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	realDir := filepath.Join(tempDir, "real")
	if err := os.Mkdir(realDir, 0o700); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	link := filepath.Join(tempDir, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	if err := EnsureRoot(link); err == nil {
		t.Fatal("expected error for symlinked root")
	}
}

func TestWriteReadInfoRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "session.info")
	want := Info{PID: 4242, Clients: 2, Created: 1700000000, Cmd: "bash"}

	if err := WriteInfo(path, want); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}
	got, err := ReadInfo(path)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestReadInfoTolerantOfOrderAndExtraLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "session.info")
	content := "created=1700000000\ncmd=bash -c 'echo hi'\nfuture_field=irrelevant\npid=99\nclients=1\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	info, err := ReadInfo(path)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	if info.PID != 99 || info.Clients != 1 || info.Created != 1700000000 || info.Cmd != "bash -c 'echo hi'" {
		t.Errorf("got %+v", info)
	}
}

func TestIsSessionAliveMissingFile(t *testing.T) {
	t.Parallel()
	if IsSessionAlive(filepath.Join(t.TempDir(), "nonexistent.pid")) {
		t.Error("missing pid file should not be alive")
	}
}

func TestIsSessionAliveDeadPID(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "dead.pid")
	// A pid vanishingly unlikely to exist on any test host.
	if err := WritePID(path, 1<<30); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	if IsSessionAlive(path) {
		t.Error("unreachable pid should not be alive")
	}
}

func TestIsSessionAliveSelf(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "self.pid")
	if err := WritePID(path, os.Getpid()); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	if !IsSessionAlive(path) {
		t.Error("own pid should be alive")
	}
}

func TestEnumerateDropsInvalidNamesAndStaleEntries(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	// A valid, live session.
	livePaths := PathsFor(root, "live")
	if err := WritePID(livePaths.PID, os.Getpid()); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	if err := os.WriteFile(livePaths.Socket, nil, 0o600); err != nil {
		t.Fatalf("WriteFile socket: %v", err)
	}
	if err := WriteInfo(livePaths.Info, Info{PID: os.Getpid(), Cmd: "bash"}); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}

	// A stale session: pid file points at a dead process.
	stalePaths := PathsFor(root, "stale")
	if err := WritePID(stalePaths.PID, 1<<30); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	if err := os.WriteFile(stalePaths.Socket, nil, 0o600); err != nil {
		t.Fatalf("WriteFile socket: %v", err)
	}
	if err := WriteInfo(stalePaths.Info, Info{PID: 1 << 30}); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}

	// A socket file with an invalid derived name is ignored, not
	// treated as a session.
	if err := os.WriteFile(filepath.Join(root, "..sock"), nil, 0o600); err != nil {
		t.Fatalf("WriteFile invalid: %v", err)
	}

	entries, err := Enumerate(root)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "live" {
		t.Fatalf("got %+v, want exactly [live]", entries)
	}

	// Stale entry's files must have been cleaned up.
	for _, path := range []string{stalePaths.Socket, stalePaths.PID, stalePaths.Info} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("stale file %s should have been removed", path)
		}
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	paths := PathsFor(root, "gone")
	if err := WritePID(paths.PID, os.Getpid()); err != nil {
		t.Fatalf("WritePID: %v", err)
	}

	if err := Remove(root, "gone"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := Remove(root, "gone"); err != nil {
		t.Fatalf("Remove (second call): %v", err)
	}
}

func TestAcquireCreateLockExcludesSecondCaller(t *testing.T) {
	t.Parallel()
	pidPath := filepath.Join(t.TempDir(), "session.pid")

	first, err := AcquireCreateLock(pidPath)
	if err != nil {
		t.Fatalf("first AcquireCreateLock: %v", err)
	}
	if _, err := AcquireCreateLock(pidPath); err == nil {
		t.Fatal("expected second AcquireCreateLock to fail while first holds the lock")
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	second, err := AcquireCreateLock(pidPath)
	if err != nil {
		t.Fatalf("AcquireCreateLock after release: %v", err)
	}
	_ = second.Release()
}
