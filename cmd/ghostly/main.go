// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

// Command ghostly is a per-user remote terminal session manager:
// detachable shell sessions that persist independently of any
// connected terminal, with multi-client attach/detach.
//
// Usage:
//
//	ghostly create <name> [-- cmd...]
//	ghostly attach <name>
//	ghostly open <name> [-- cmd...]
//	ghostly list [--json]
//	ghostly kill <name>
//	ghostly version
//	ghostly help
package main

import (
	"fmt"
	"os"

	"github.com/ghostly-sh/ghostly/internal/attach"
	"github.com/ghostly-sh/ghostly/internal/daemon"
	"github.com/ghostly-sh/ghostly/lib/clierr"
	"github.com/ghostly-sh/ghostly/lib/version"
)

func main() {
	args := os.Args[1:]

	// The hidden re-exec path: ghostly __ghostly-daemon__ <name> <cmd>.
	// daemon.Create launches this itself; it is never typed by a user.
	if len(args) > 0 && args[0] == daemon.ReexecArg {
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "error: malformed daemon re-exec invocation")
			os.Exit(1)
		}
		daemon.RunDaemon(args[1], args[2])
		return
	}

	if len(args) == 0 {
		printUsage(os.Stderr)
		os.Exit(clierr.ExitCode(clierr.Validation("no command given")))
	}

	command, rest := args[0], args[1:]

	switch command {
	case "attach":
		runAttach(rest)
	case "open":
		runOpen(rest)
	case "create":
		err := runCreate(rest)
		reportAndExit(err)
	case "list":
		err := runList(rest)
		reportAndExit(err)
	case "kill":
		err := runKill(rest)
		reportAndExit(err)
	case "version", "--version", "-v":
		fmt.Printf("ghostly %s\n", version.Info())
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		reportAndExit(clierr.Validation("unknown command %q", command))
	}
}

// runAttach and runOpen relay an arbitrary shell exit code rather than
// one of clierr's fixed category codes, so they bypass reportAndExit
// and call os.Exit themselves.
func runAttach(args []string) {
	name, err := singlePositionalArg(args, "attach <name>")
	if err != nil {
		reportAndExit(err)
	}
	code, err := attach.Attach(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(clierr.ExitCode(err))
	}
	os.Exit(code)
}

func runOpen(args []string) {
	name, command, err := parseNameAndCommand(args)
	if err != nil {
		reportAndExit(err)
	}
	code, err := attach.Open(name, command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(clierr.ExitCode(err))
	}
	os.Exit(code)
}

func reportAndExit(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(clierr.ExitCode(err))
}

func printUsage(w *os.File) {
	fmt.Fprint(w, `ghostly - per-user detachable terminal sessions

USAGE
    ghostly create <name> [-- cmd...]   daemonise a new session
    ghostly attach <name>               attach to a running session
    ghostly open <name> [-- cmd...]     attach if running, else create
    ghostly list [--json]               list live sessions
    ghostly kill <name>                 terminate a session
    ghostly version                     print version information
    ghostly help                        this text

Detach from an attached session with Ctrl-\.
`)
}
