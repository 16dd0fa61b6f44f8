// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fmriprep submits fMRIPrep singularity jobs for a study.
package fmriprep

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/kyjimmy/datman/internal/executor"
	"github.com/kyjimmy/datman/internal/queue"
	"github.com/kyjimmy/datman/internal/script"
	"github.com/kyjimmy/datman/internal/site"
	"github.com/kyjimmy/datman/internal/studyconfig"
	"github.com/kyjimmy/datman/internal/subjects"
)

// SubmitRun contains the arguments for "datman fmriprep".
type SubmitRun struct {
	// Study is the study nickname looked up in the site config.
	Study string
	// Subjects, when non-empty, bypasses discovery.
	Subjects []string

	// ConfigFile overrides the site config location.
	ConfigFile string
	// SingularityImage is the fMRIPrep container.
	SingularityImage string
	// OutDir overrides the default <study>/pipelines/fmriprep.
	OutDir string
	// FSLicense is the FreeSurfer license file mounted into the container.
	FSLicense string

	// Rewrite resubmits subjects that already have fmriprep outputs.
	Rewrite bool
	// IgnoreRecon skips reusing existing FreeSurfer reconstructions.
	IgnoreRecon bool

	DryRun bool
}

// Validate verifies the input is valid and applies defaults.
func (s *SubmitRun) Validate() error {
	if s.Study == "" {
		return errors.Reason("a study nickname is required").Err()
	}
	if s.ConfigFile == "" {
		s.ConfigFile = site.ConfigPath()
	}
	if s.SingularityImage == "" {
		s.SingularityImage = site.DefaultSingularityImage
	}
	if s.FSLicense == "" {
		s.FSLicense = site.DefaultFSLicense
	}
	return nil
}

// TriggerRun submits one fMRIPrep job per outstanding subject.
func (s *SubmitRun) TriggerRun(ctx context.Context, e executor.IExecCommander) error {
	cfg, err := studyconfig.Load(s.ConfigFile)
	if err != nil {
		return err
	}
	study, err := cfg.Study(s.Study)
	if err != nil {
		return err
	}

	outDir := s.OutDir
	if outDir == "" {
		outDir = study.PipelinePath("fmriprep")
	}
	bidsDir := study.Path("bids")

	subs := s.Subjects
	if len(subs) == 0 {
		subs, err = subjects.List(study.Path("nii"))
		if err != nil {
			return err
		}
		if !s.Rewrite {
			subs = subjects.FilterUnprocessed(subs, outDir)
		}
	}
	if len(subs) == 0 {
		logging.Infof(ctx, "no outstanding subjects to process")
		return nil
	}

	for _, subject := range subs {
		if err := s.submitSubject(ctx, e, study, subject, bidsDir, outDir); err != nil {
			return errors.Annotate(err, "fmriprep %s", subject).Err()
		}
	}
	return nil
}

func (s *SubmitRun) submitSubject(ctx context.Context, e executor.IExecCommander, study *studyconfig.Study, subject, bidsDir, outDir string) error {
	subOut := filepath.Join(outDir, subject)
	if err := os.MkdirAll(subOut, 0o755); err != nil {
		return errors.Annotate(err, "create output dir").Err()
	}

	if !s.IgnoreRecon {
		if err := s.fetchRecons(ctx, e, study, subject, subOut); err != nil {
			return err
		}
	}

	label, err := BIDSLabel(subject)
	if err != nil {
		return err
	}
	content, err := script.FmriprepJobScript(script.FmriprepJob{
		BidsDir:          bidsDir,
		SingularityImage: s.SingularityImage,
		ParticipantLabel: label,
		OutDir:           subOut,
		FSLicense:        s.FSLicense,
	})
	if err != nil {
		return err
	}
	jobFile, err := script.WriteTemp(content)
	if err != nil {
		return err
	}

	q := &queue.Qsub{JobFile: jobFile}
	if err := q.Submit(ctx, e, s.DryRun); err != nil {
		return err
	}
	logging.Debugf(ctx, "removing job file %s", jobFile)
	if err := os.Remove(jobFile); err != nil {
		return errors.Annotate(err, "remove job file").Err()
	}
	return nil
}

// fetchRecons copies an existing FreeSurfer reconstruction into the
// subject's fMRIPrep output so the container detects and reuses it. A
// failed copy is downgraded to a warning: fMRIPrep will simply run
// recon-all itself.
func (s *SubmitRun) fetchRecons(ctx context.Context, e executor.IExecCommander, study *studyconfig.Study, subject, subOut string) error {
	reconDir := filepath.Join(study.PipelinePath("freesurfer"), subject)
	if info, err := os.Stat(reconDir); err != nil || !info.IsDir() {
		return nil
	}
	dest := filepath.Join(subOut, "freesurfer")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Annotate(err, "create %s", dest).Err()
	}
	logging.Infof(ctx, "copying FreeSurfer reconstruction for %s to %s", subject, dest)
	if _, err := e.Exec(exec.CommandContext(ctx, "rsync", "-a", reconDir, dest)); err != nil {
		logging.Warningf(ctx, "FreeSurfer copy failed, fmriprep will run recon-all: %s", err)
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			return errors.Annotate(rmErr, "remove partial copy %s", dest).Err()
		}
	}
	return nil
}

// BIDSLabel converts a datman-style subject id (STUDY_SITE_ID_TIMEPOINT
// segments) into the participant label fMRIPrep expects.
func BIDSLabel(subject string) (string, error) {
	parts := strings.Split(subject, "_")
	if len(parts) < 3 {
		return "", errors.Reason("%q is not a datman-style subject id", subject).Err()
	}
	return "sub-" + parts[1] + parts[len(parts)-2], nil
}
