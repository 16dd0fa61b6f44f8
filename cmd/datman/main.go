// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command datman submits neuroimaging pipeline jobs (FreeSurfer
// recon-all, fMRIPrep) to a compute cluster and tracks per-subject
// state in CSV checklists.
package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/kyjimmy/datman/internal/components/fmriprep"
	"github.com/kyjimmy/datman/internal/components/freesurfer"
	"github.com/kyjimmy/datman/internal/components/meta"
	"github.com/kyjimmy/datman/internal/components/status"
)

func newApplication() *cli.Application {
	return &cli.Application{
		Name:  "datman",
		Title: "Neuroimaging pipeline submission tool",
		Context: func(ctx context.Context) context.Context {
			return gologger.StdConfig.Use(ctx)
		},
		Commands: []*subcommands.Command{
			subcommands.CmdHelp,
			meta.VersionCmd,
			subcommands.Section("Pipelines"),
			freesurfer.SubmitFreesurferCmd,
			fmriprep.SubmitFmriprepCmd,
			subcommands.Section("Bookkeeping"),
			status.StatusCmd,
		},
	}
}

func main() {
	os.Exit(subcommands.Run(newApplication(), nil))
}
