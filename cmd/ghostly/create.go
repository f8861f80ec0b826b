// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/ghostly-sh/ghostly/internal/daemon"
)

func runCreate(args []string) error {
	name, command, err := parseNameAndCommand(args)
	if err != nil {
		return err
	}
	return daemon.Create(name, command)
}
