// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package freesurfer implements the "datman freesurfer" subcommand.
package freesurfer

import (
	"fmt"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"

	"github.com/kyjimmy/datman/internal/executor"
	fslib "github.com/kyjimmy/datman/internal/freesurfer"
	"github.com/kyjimmy/datman/internal/site"
)

// SubmitFreesurferCmd is the command that submits recon-all jobs.
var SubmitFreesurferCmd = &subcommands.Command{
	UsageLine: "freesurfer [options ...] <inputdir> <subjectsdir>",
	ShortDesc: "Submit FreeSurfer recon-all jobs for a study",
	LongDesc: `Submit FreeSurfer recon-all jobs for a study.

Searches <inputdir> for T1 images by tag, records the chosen image per
subject in <subjectsdir>/freesurfer-checklist.csv, and submits a queue
job for every subject that has a T1 listed and no outputs yet. Edit the
T1_nii column by hand to override image selection (e.g. repeat scans).
A post-processing job running the ENIGMA extraction scripts is
submitted after the recon jobs unless -no-post is given.`,
	CommandRun: func() subcommands.CommandRun {
		c := &submitFreesurferRun{}
		c.commonFlags.Register(&c.Flags)
		c.Flags.StringVar(&c.t1Tag, "t1-tag", site.DefaultT1Tag, "tag used to find the T1 files")
		c.Flags.StringVar(&c.tag2, "tag2", "", "optional second tag used to filter for correct input")
		c.Flags.BoolVar(&c.multipleInputs, "multiple-inputs", false, "allow multiple input T1 files per subject")
		c.Flags.StringVar(&c.fsOption, "fs-option", "", "a quoted string of a non-default FreeSurfer option to add")
		c.Flags.StringVar(&c.runVersion, "run-version", "", "version string appended to the run script name, for variant settings")
		c.Flags.StringVar(&c.qcFile, "qc-file", "", "QC checklist; when given, only QCed participants are processed")
		c.Flags.StringVar(&c.prefix, "prefix", "", "subject id prefix used by the ENIGMA extraction")
		c.Flags.StringVar(&c.walltime, "walltime", site.DefaultWalltime, "walltime for the recon-all stage")
		c.Flags.StringVar(&c.postWalltime, "walltime-post", site.DefaultPostWalltime, "walltime for the post-processing stage")
		c.Flags.BoolVar(&c.noPost, "no-post", false, "do not submit the post-processing job")
		c.Flags.BoolVar(&c.postOnly, "post-only", false, "only submit the post-processing job")
		return c
	},
}

type submitFreesurferRun struct {
	subcommands.CommandRunBase
	commonFlags site.CommonFlags

	t1Tag          string
	tag2           string
	multipleInputs bool
	fsOption       string
	runVersion     string
	qcFile         string
	prefix         string
	walltime       string
	postWalltime   string
	noPost         bool
	postOnly       bool
}

// Run submits the jobs and returns an exit status.
func (c *submitFreesurferRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
		return 1
	}
	return 0
}

func (c *submitFreesurferRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	ctx := cli.GetContext(a, c, env)
	ctx = c.commonFlags.ModifyContext(ctx)
	if len(args) != 2 {
		return errors.Reason("expected <inputdir> <subjectsdir>, got %d arguments", len(args)).Err()
	}
	r := &fslib.SubmitRun{
		InputDir:       args[0],
		SubjectsDir:    args[1],
		T1Tag:          c.t1Tag,
		Tag2:           c.tag2,
		MultipleInputs: c.multipleInputs,
		FSOption:       c.fsOption,
		RunVersion:     c.runVersion,
		QCFile:         c.qcFile,
		Prefix:         c.prefix,
		Walltime:       c.walltime,
		PostWalltime:   c.postWalltime,
		NoPost:         c.noPost,
		PostOnly:       c.postOnly,
		DryRun:         c.commonFlags.DryRun,
	}
	if err := r.Validate(); err != nil {
		return err
	}
	return r.TriggerRun(ctx, &executor.ExecCommander{})
}
