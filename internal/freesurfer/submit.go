// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package freesurfer submits FreeSurfer recon-all jobs for a study and
// tracks their state in the study checklist.
package freesurfer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/kyjimmy/datman/internal/checklist"
	"github.com/kyjimmy/datman/internal/executor"
	"github.com/kyjimmy/datman/internal/queue"
	"github.com/kyjimmy/datman/internal/script"
	"github.com/kyjimmy/datman/internal/site"
	"github.com/kyjimmy/datman/internal/subjects"
)

// SubmitRun contains the arguments for "datman freesurfer".
type SubmitRun struct {
	// InputDir is the top directory of the nii inputs.
	InputDir string
	// SubjectsDir is the top directory of the FreeSurfer outputs.
	SubjectsDir string

	// T1Tag is the tag used to find T1 files.
	T1Tag string
	// Tag2 optionally narrows both the subject list and the T1 search.
	Tag2 string
	// MultipleInputs allows several T1 files per subject.
	MultipleInputs bool
	// FSOption is a raw non-default recon-all option string.
	FSOption string
	// RunVersion is appended to the run script name so variant settings
	// can coexist in one bin directory.
	RunVersion string
	// QCFile, when set, restricts submission to QCed participants.
	QCFile string
	// Prefix is the subject id prefix handed to the ENIGMA extraction.
	// Defaults to the first three characters of the first subject.
	Prefix string

	Walltime     string
	PostWalltime string

	// NoPost skips the post-processing job; PostOnly submits nothing else.
	NoPost   bool
	PostOnly bool

	DryRun bool

	now func() time.Time
}

// Validate verifies the input is valid.
func (s *SubmitRun) Validate() error {
	if s.InputDir == "" || s.SubjectsDir == "" {
		return errors.Reason("both an input dir and a subjects dir are required").Err()
	}
	if s.NoPost && s.PostOnly {
		return errors.Reason("-no-post and -post-only cannot both be set").Err()
	}
	if s.T1Tag == "" {
		s.T1Tag = site.DefaultT1Tag
	}
	if s.Walltime == "" {
		s.Walltime = site.DefaultWalltime
	}
	if s.PostWalltime == "" {
		s.PostWalltime = site.DefaultPostWalltime
	}
	return nil
}

// runScriptName is the recon-all wrapper, optionally versioned.
func (s *SubmitRun) runScriptName() string {
	if s.RunVersion == "" {
		return "run_freesurfer.sh"
	}
	return "run_freesurfer_" + s.RunVersion + ".sh"
}

const postScriptName = "postfreesurfer.sh"

func (s *SubmitRun) timeNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// TriggerRun discovers outstanding subjects, writes the run scripts and
// submits the queue jobs, updating the checklist as it goes.
func (s *SubmitRun) TriggerRun(ctx context.Context, e executor.IExecCommander) error {
	subjectsDir, err := filepath.Abs(s.SubjectsDir)
	if err != nil {
		return errors.Annotate(err, "resolve subjects dir").Err()
	}
	binDir := filepath.Join(subjectsDir, "bin")
	logDir := filepath.Join(subjectsDir, "logs")
	for _, dir := range []string{binDir, logDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Annotate(err, "create %s", dir).Err()
		}
	}

	subs, err := subjects.List(s.InputDir)
	if err != nil {
		return err
	}
	subs = subjects.FilterTag(subs, s.Tag2)
	if s.QCFile != "" {
		subs, err = subjects.FilterQCed(subs, s.QCFile)
		if err != nil {
			return err
		}
	}
	if len(subs) == 0 {
		return errors.Reason("no outstanding scans to process").Err()
	}
	if s.Prefix == "" {
		s.Prefix = subs[0]
		if len(s.Prefix) > 3 {
			s.Prefix = s.Prefix[:3]
		}
	}

	if err := s.ensureRunScripts(subjectsDir, binDir); err != nil {
		return err
	}

	checklistPath := filepath.Join(subjectsDir, site.ChecklistFilename)
	cl, err := checklist.Load(checklistPath)
	if err != nil {
		return err
	}
	cl.AddNewSubjects(subs)
	if err := cl.FindImages(s.InputDir, s.T1Tag, s.Tag2, s.MultipleInputs); err != nil {
		return err
	}

	jobPrefix := "FS_" + s.timeNow().Format("20060102-150405") + "_"

	submitted := false
	if !s.PostOnly {
		submitted, err = s.submitRecons(ctx, e, cl, subjectsDir, binDir, logDir, jobPrefix)
		if err != nil {
			return err
		}
	}

	// The consolidation job runs after the recon jobs it was submitted
	// alongside, held on the shared job name prefix.
	if s.PostOnly || (!s.NoPost && submitted) {
		post := &queue.PipedQbatch{
			Command:  "bash -l " + filepath.Join(binDir, postScriptName),
			JobName:  jobPrefix + "post",
			LogDir:   logDir,
			Walltime: s.PostWalltime,
			AfterOK:  jobPrefix + "*",
		}
		if err := post.Submit(ctx, e, s.DryRun); err != nil {
			return errors.Annotate(err, "post freesurfer").Err()
		}
	}

	if s.DryRun {
		logging.Infof(ctx, "dry run: leaving %s untouched", checklistPath)
		return nil
	}
	return cl.Save(checklistPath)
}

// ensureRunScripts writes the wrapper scripts this run needs, erroring
// if an existing script was written with different parameters.
func (s *SubmitRun) ensureRunScripts(subjectsDir, binDir string) error {
	if !s.PostOnly {
		content, err := script.FreesurferRunScript(script.FreesurferRun{
			SubjectsDir: subjectsDir,
			ExtraOption: s.FSOption,
		})
		if err != nil {
			return err
		}
		if err := script.EnsureWritten(filepath.Join(binDir, s.runScriptName()), content); err != nil {
			return err
		}
	}
	if !s.NoPost {
		content, err := script.PostFreesurferScript(script.PostFreesurfer{
			SubjectsDir: subjectsDir,
			Prefix:      s.Prefix,
		})
		if err != nil {
			return err
		}
		if err := script.EnsureWritten(filepath.Join(binDir, postScriptName), content); err != nil {
			return err
		}
	}
	return nil
}

// submitRecons submits one recon-all job per outstanding subject and
// reports whether anything was submitted.
func (s *SubmitRun) submitRecons(ctx context.Context, e executor.IExecCommander, cl *checklist.Checklist, subjectsDir, binDir, logDir, jobPrefix string) (bool, error) {
	runScript := filepath.Join(binDir, s.runScriptName())
	submitted := false
	for _, row := range cl.Rows() {
		if s.Tag2 != "" && !strings.Contains(row.ID, s.Tag2) {
			continue
		}
		if row.T1Nii == "" {
			continue
		}
		if completed(subjectsDir, row.ID) {
			logging.Debugf(ctx, "%s already completed, skipping", row.ID)
			continue
		}
		if halted := haltedMarker(subjectsDir, row.ID); halted != "" {
			cl.SetNote(row.ID, "FS halted at "+filepath.Base(halted))
			logging.Warningf(ctx, "%s halted at %s, skipping", row.ID, filepath.Base(halted))
			continue
		}

		parts := []string{"bash", "-l", runScript, row.ID}
		for _, m := range strings.Split(row.T1Nii, ";") {
			parts = append(parts, "-i", filepath.Join(s.InputDir, row.ID, m))
		}
		job := &queue.PipedQbatch{
			Command:  strings.Join(parts, " "),
			JobName:  jobPrefix + row.ID,
			LogDir:   logDir,
			Walltime: s.Walltime,
		}
		if err := job.Submit(ctx, e, s.DryRun); err != nil {
			return submitted, errors.Annotate(err, "freesurfer %s", row.ID).Err()
		}
		cl.SetDateRan(row.ID, s.timeNow().Format("2006-01-02"))
		submitted = true
	}
	return submitted, nil
}

// completed reports whether recon-all already finished for the subject.
func completed(subjectsDir, id string) bool {
	info, err := os.Stat(filepath.Join(subjectsDir, id, "scripts", "recon-all.done"))
	return err == nil && !info.IsDir()
}

// haltedMarker returns the IsRunning marker left behind by a halted
// recon-all run, or "" if there is none.
func haltedMarker(subjectsDir, id string) string {
	matches, err := filepath.Glob(filepath.Join(subjectsDir, id, "scripts", "IsRunning*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}
