// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fmriprep implements the "datman fmriprep" subcommand.
package fmriprep

import (
	"fmt"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"

	"github.com/kyjimmy/datman/internal/executor"
	fplib "github.com/kyjimmy/datman/internal/fmriprep"
	"github.com/kyjimmy/datman/internal/site"
)

// SubmitFmriprepCmd is the command that submits fMRIPrep jobs.
var SubmitFmriprepCmd = &subcommands.Command{
	UsageLine: "fmriprep [options ...] <study> [<subjects> ...]",
	ShortDesc: "Submit fMRIPrep preprocessing jobs for a study",
	LongDesc: `Submit fMRIPrep preprocessing jobs for a study.

Runs the fMRIPrep singularity container for each subject. Without an
explicit subject list, subjects are discovered from the study's nii
directory and those with existing fmriprep outputs are skipped unless
-rewrite is given. Existing FreeSurfer reconstructions are copied into
the output so fMRIPrep reuses them instead of re-running recon-all.`,
	CommandRun: func() subcommands.CommandRun {
		c := &submitFmriprepRun{}
		c.commonFlags.Register(&c.Flags)
		c.Flags.StringVar(&c.configFile, "config-file", "", "site config path (default $DM_CONFIG, then the site default)")
		c.Flags.StringVar(&c.singularityImage, "singularity-image", site.DefaultSingularityImage, "fMRIPrep singularity image to run")
		c.Flags.StringVar(&c.outDir, "out-dir", "", "output directory (default <study>/pipelines/fmriprep)")
		c.Flags.StringVar(&c.fsLicense, "fs-license", site.DefaultFSLicense, "FreeSurfer license file")
		c.Flags.BoolVar(&c.rewrite, "rewrite", false, "resubmit subjects that already have fmriprep outputs")
		c.Flags.BoolVar(&c.ignoreRecon, "ignore-recon", false, "do not reuse existing FreeSurfer reconstructions")
		return c
	},
}

type submitFmriprepRun struct {
	subcommands.CommandRunBase
	commonFlags site.CommonFlags

	configFile       string
	singularityImage string
	outDir           string
	fsLicense        string
	rewrite          bool
	ignoreRecon      bool
}

// Run submits the jobs and returns an exit status.
func (c *submitFmriprepRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
		return 1
	}
	return 0
}

func (c *submitFmriprepRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	ctx := cli.GetContext(a, c, env)
	ctx = c.commonFlags.ModifyContext(ctx)
	if len(args) < 1 {
		return errors.Reason("a study nickname is required").Err()
	}
	r := &fplib.SubmitRun{
		Study:            args[0],
		Subjects:         args[1:],
		ConfigFile:       c.configFile,
		SingularityImage: c.singularityImage,
		OutDir:           c.outDir,
		FSLicense:        c.fsLicense,
		Rewrite:          c.rewrite,
		IgnoreRecon:      c.ignoreRecon,
		DryRun:           c.commonFlags.DryRun,
	}
	if err := r.Validate(); err != nil {
		return err
	}
	return r.TriggerRun(ctx, &executor.ExecCommander{})
}
