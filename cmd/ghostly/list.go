// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/ghostly-sh/ghostly/internal/registry"
)

func runList(args []string) error {
	var asJSON bool
	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
	flagSet.BoolVar(&asJSON, "json", false, "print a bare JSON array instead of a table")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	root := registry.Root(unix.Getuid())
	entries, err := registry.Enumerate(root)
	if err != nil {
		return err
	}

	if asJSON {
		return printListJSON(entries)
	}
	printListTable(entries)
	return nil
}

// listRow is the bare JSON shape for --json output. Rich field
// negotiation is the out-of-scope collaborator's concern; this is
// just enough to make the flag usable standalone.
type listRow struct {
	Name    string `json:"name"`
	PID     int    `json:"pid"`
	Clients int    `json:"clients"`
	Created int64  `json:"created"`
	Cmd     string `json:"cmd"`
}

func printListJSON(entries []registry.Entry) error {
	rows := make([]listRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, listRow{
			Name:    e.Name,
			PID:     e.Info.PID,
			Clients: e.Info.Clients,
			Created: e.Info.Created,
			Cmd:     e.Info.Cmd,
		})
	}
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(rows)
}

func printListTable(entries []registry.Entry) {
	styled := termenv.NewOutput(os.Stdout).ColorProfile() != termenv.Ascii

	headerStyle := lipgloss.NewStyle()
	if styled {
		headerStyle = headerStyle.Bold(true).Foreground(lipgloss.Color("245"))
	}

	widths := columnWidths(entries)
	fmt.Println(headerStyle.Render(formatRow(widths, "NAME", "PID", "CLIENTS", "CREATED", "CMD")))
	for _, e := range entries {
		created := time.Unix(e.Info.Created, 0).UTC().Format(time.RFC3339)
		fmt.Println(formatRow(widths,
			e.Name,
			fmt.Sprint(e.Info.PID),
			fmt.Sprint(e.Info.Clients),
			created,
			e.Info.Cmd,
		))
	}
}

type rowWidths struct {
	name, pid, clients, created int
}

func columnWidths(entries []registry.Entry) rowWidths {
	w := rowWidths{name: 4, pid: 3, clients: 7, created: len(time.RFC3339)}
	for _, e := range entries {
		if len(e.Name) > w.name {
			w.name = len(e.Name)
		}
	}
	return w
}

func formatRow(w rowWidths, name, pid, clients, created, cmd string) string {
	return fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %s", w.name, name, w.pid, pid, w.clients, clients, w.created, created, cmd)
}
