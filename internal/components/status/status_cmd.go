// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package status implements the "datman status" subcommand.
package status

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/errors"

	"github.com/kyjimmy/datman/internal/checklist"
)

// StatusCmd summarizes a FreeSurfer checklist.
var StatusCmd = &subcommands.Command{
	UsageLine: "status <checklist>",
	ShortDesc: "Summarize a FreeSurfer checklist",
	LongDesc: `Summarize a FreeSurfer checklist.

Prints how many subjects have been submitted, are still pending, have
no T1 image assigned, or carry a note.`,
	CommandRun: func() subcommands.CommandRun {
		return &statusRun{}
	},
}

type statusRun struct {
	subcommands.CommandRunBase
}

// Run prints the summary and returns an exit status.
func (c *statusRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
		return 1
	}
	return 0
}

func (c *statusRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) != 1 {
		return errors.Reason("expected exactly one checklist path").Err()
	}
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return errors.Annotate(err, "stat checklist").Err()
	}
	cl, err := checklist.Load(path)
	if err != nil {
		return err
	}

	var submitted, pending, unassigned, noted int
	rows := cl.Rows()
	for _, r := range rows {
		switch {
		case r.DateRan != "":
			submitted++
		case r.T1Nii != "":
			pending++
		default:
			unassigned++
		}
		if r.Notes != "" {
			noted++
		}
	}

	w := tabwriter.NewWriter(a.GetOut(), 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "total\t%d\n", len(rows))
	fmt.Fprintf(w, "submitted\t%d\n", submitted)
	fmt.Fprintf(w, "pending\t%d\n", pending)
	fmt.Fprintf(w, "no T1 assigned\t%d\n", unassigned)
	fmt.Fprintf(w, "with notes\t%d\n", noted)
	return w.Flush()
}
