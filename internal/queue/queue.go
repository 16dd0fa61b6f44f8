// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package queue builds and submits batch queue commands. All submission
// goes through the executor so tests can capture the command lines.
package queue

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/kyjimmy/datman/internal/executor"
)

// PipedQbatch describes one job command fed to qbatch on stdin.
type PipedQbatch struct {
	// Command is the shell command the job runs.
	Command string
	// JobName names the job in the queue.
	JobName string
	// LogDir receives the queue's stdout/stderr logs.
	LogDir string
	// Walltime is a queue walltime string like "24:00:00".
	Walltime string
	// AfterOK, when set, holds the job until jobs matching the pattern
	// finish successfully.
	AfterOK string
}

// ShellCommand returns the full shell line piped into qbatch.
func (q *PipedQbatch) ShellCommand() string {
	var b strings.Builder
	fmt.Fprintf(&b, "echo %s | qbatch -N %s --logdir %s --walltime %s ", q.Command, q.JobName, q.LogDir, q.Walltime)
	if q.AfterOK != "" {
		fmt.Fprintf(&b, "--afterok '%s' ", q.AfterOK)
	}
	b.WriteString("-")
	return b.String()
}

// Submit pipes the job into qbatch. Under dryRun the command is logged
// and nothing is submitted.
func (q *PipedQbatch) Submit(ctx context.Context, e executor.IExecCommander, dryRun bool) error {
	sh := q.ShellCommand()
	logging.Debugf(ctx, "running command: %s", sh)
	if dryRun {
		logging.Infof(ctx, "dry run: not submitting job %s", q.JobName)
		return nil
	}
	out, err := e.Exec(exec.CommandContext(ctx, "bash", "-c", sh))
	if err != nil {
		return errors.Annotate(err, "submit job %s", q.JobName).Err()
	}
	if len(out) > 0 {
		logging.Debugf(ctx, "%s", out)
	}
	return nil
}

// Qsub describes a job script submitted directly with `qsub -V`.
type Qsub struct {
	JobFile string
}

// Args returns the qsub argv.
func (q *Qsub) Args() []string {
	return []string{"qsub", "-V", q.JobFile}
}

// Submit hands the job file to qsub. Under dryRun the command is logged
// and nothing is submitted.
func (q *Qsub) Submit(ctx context.Context, e executor.IExecCommander, dryRun bool) error {
	args := q.Args()
	logging.Infof(ctx, "submitting job with command: %s", strings.Join(args, " "))
	if dryRun {
		logging.Infof(ctx, "dry run: not submitting %s", q.JobFile)
		return nil
	}
	out, err := e.Exec(exec.CommandContext(ctx, args[0], args[1:]...))
	if err != nil {
		return errors.Annotate(err, "submit job file %s", q.JobFile).Err()
	}
	if len(out) > 0 {
		logging.Debugf(ctx, "%s", out)
	}
	return nil
}
