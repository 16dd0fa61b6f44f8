// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package meta contains commands about the datman tool itself.
package meta

import (
	"fmt"

	"github.com/maruel/subcommands"

	"github.com/kyjimmy/datman/internal/site"
)

// VersionCmd prints the tool version.
var VersionCmd = &subcommands.Command{
	UsageLine: "version",
	ShortDesc: "Print datman version",
	CommandRun: func() subcommands.CommandRun {
		return &versionRun{}
	},
}

type versionRun struct {
	subcommands.CommandRunBase
}

func (c *versionRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	fmt.Fprintf(a.GetOut(), "%s version %d\n", site.AppPrefix, site.VersionNumber)
	return 0
}
