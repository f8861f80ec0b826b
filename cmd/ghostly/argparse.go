// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"

	"github.com/ghostly-sh/ghostly/lib/clierr"
)

// singlePositionalArg requires exactly one argument and returns it,
// or a validation error referencing usage for the command.
func singlePositionalArg(args []string, usage string) (string, error) {
	if len(args) != 1 {
		return "", clierr.Validation("usage: ghostly %s", usage)
	}
	return args[0], nil
}

// parseNameAndCommand splits "<name> [-- cmd...]" into the session
// name and a single joined command string. With no "--", there is no
// explicit command and the session runs a login shell.
func parseNameAndCommand(args []string) (name, command string, err error) {
	dashIndex := -1
	for i, a := range args {
		if a == "--" {
			dashIndex = i
			break
		}
	}

	nameArgs := args
	var commandArgs []string
	if dashIndex != -1 {
		nameArgs = args[:dashIndex]
		commandArgs = args[dashIndex+1:]
	}

	if len(nameArgs) != 1 {
		return "", "", clierr.Validation("usage: ghostly <command> <name> [-- cmd...]")
	}

	return nameArgs[0], strings.Join(commandArgs, " "), nil
}
