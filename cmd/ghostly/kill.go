// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/ghostly-sh/ghostly/internal/daemon"

func runKill(args []string) error {
	name, err := singlePositionalArg(args, "kill <name>")
	if err != nil {
		return err
	}
	return daemon.Kill(name)
}
