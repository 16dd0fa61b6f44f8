// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package site contains site local constants for the datman tool.
package site

import (
	"context"
	"flag"
	"os"

	"go.chromium.org/luci/common/logging"
)

// AppPrefix is the prefix to use the datman CLI.
var AppPrefix = "datman"

// VersionNumber is the version number for the datman tool.
const VersionNumber = 2

const (
	// ConfigPathEnv is the env var used to locate the site config when
	// -config-file is not given.
	ConfigPathEnv = "DM_CONFIG"
	// DefaultConfigPath is the site config to use if `ConfigPathEnv` is
	// not present.
	DefaultConfigPath = "/archive/code/config/site_config.yaml"
	// DefaultSingularityImage is the fMRIPrep container used when no
	// image is given on the command line.
	DefaultSingularityImage = "/archive/code/containers/FMRIPREP/poldracklab_fmriprep_1.1.1-2018-06-07-2f08547a0732.img"
	// DefaultFSLicense is the FreeSurfer license file mounted into the
	// fMRIPrep container.
	DefaultFSLicense = "/opt/quarantine/freesurfer/6.0.0/build/license.txt"
	// DefaultWalltime is the walltime for the recon-all stage.
	DefaultWalltime = "24:00:00"
	// DefaultPostWalltime is the walltime for the post-processing stage.
	DefaultPostWalltime = "2:00:00"

	// ChecklistFilename is the per-study FreeSurfer checklist name.
	ChecklistFilename = "freesurfer-checklist.csv"
	// DefaultT1Tag is the tag used to find T1 files when none is given.
	DefaultT1Tag = "_T1_"
	// PhantomTag marks phantom scans, which are never submitted.
	PhantomTag = "PHA"
)

// ConfigPath returns the site config path from the environment, or the
// site default.
func ConfigPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return DefaultConfigPath
}

// CommonFlags controls some commonly-used CLI flags.
type CommonFlags struct {
	Verbose bool
	Debug   bool
	Quiet   bool
	DryRun  bool
}

// Register sets up the common flags.
func (f *CommonFlags) Register(fl *flag.FlagSet) {
	fl.BoolVar(&f.Verbose, "verbose", false, "whether to log verbosely")
	fl.BoolVar(&f.Debug, "debug", false, "whether to log debug information")
	fl.BoolVar(&f.Quiet, "quiet", false, "only log errors")
	fl.BoolVar(&f.DryRun, "dry-run", false, "print what would be submitted without submitting")
}

// ModifyContext applies the logging level implied by the flags.
// Debug wins over verbose wins over quiet.
func (f *CommonFlags) ModifyContext(ctx context.Context) context.Context {
	switch {
	case f.Debug:
		return logging.SetLevel(ctx, logging.Debug)
	case f.Verbose:
		return logging.SetLevel(ctx, logging.Info)
	case f.Quiet:
		return logging.SetLevel(ctx, logging.Error)
	}
	return logging.SetLevel(ctx, logging.Warning)
}
