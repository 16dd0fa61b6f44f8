// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package script renders the shell scripts that wrap the external
// neuroimaging binaries, and enforces their write-once semantics.
package script

import (
	"os"
	"strings"
	"text/template"

	"go.chromium.org/luci/common/errors"
)

// FreesurferRun holds the parameters of a recon-all run script.
type FreesurferRun struct {
	// SubjectsDir becomes the exported SUBJECTS_DIR.
	SubjectsDir string
	// ExtraOption is a raw, non-default recon-all option string.
	ExtraOption string
}

// PostFreesurfer holds the parameters of the ENIGMA extraction script.
type PostFreesurfer struct {
	SubjectsDir string
	// Prefix filters extraction to matching subject ids.
	Prefix string
}

// FmriprepJob holds the parameters of one fMRIPrep singularity job.
type FmriprepJob struct {
	BidsDir          string
	SingularityImage string
	ParticipantLabel string
	OutDir           string
	FSLicense        string
}

var freesurferRunTmpl = template.Must(template.New("run_freesurfer").Parse(`#!/bin/bash

export SUBJECTS_DIR={{.SubjectsDir}}

## Prints loaded modules to the log
module list

SUBJECT=${1}
shift
T1MAPS=${@}

recon-all -all {{if .ExtraOption}}{{.ExtraOption}} {{end}}-subjid ${SUBJECT} ${T1MAPS} -qcache
`))

var postFreesurferTmpl = template.Must(template.New("postfreesurfer").Parse(`#!/bin/bash

export SUBJECTS_DIR={{.SubjectsDir}}

## Prints loaded modules to the log
module list

ENIGMA_ExtractCortical.sh ${SUBJECTS_DIR} {{.Prefix}}
ENIGMA_ExtractSubcortical.sh ${SUBJECTS_DIR} {{.Prefix}}
`))

var fmriprepJobTmpl = template.Must(template.New("fmriprep_job").Parse(`#!/bin/bash

function cleanup() {
    rm -rf $HOME
}

HOME=$(mktemp -d /tmp/home.XXXXX)
WORK=$(mktemp -d $HOME/work.XXXXX)
LICENSE=$(mktemp -d $HOME/li.XXXXX)
BIDS={{.BidsDir}}
SIMG={{.SingularityImage}}
SUB={{.ParticipantLabel}}
OUT={{.OutDir}}

cp {{.FSLicense}} $LICENSE/license.txt

trap cleanup EXIT
singularity run -H $HOME -B $BIDS:/bids -B $WORK:/work -B $OUT:/out -B $LICENSE:/li \
$SIMG \
/bids /out \
participant --participant-label $SUB \
--fs-license-file /li/license.txt

cleanup
`))

func render(tmpl *template.Template, data interface{}) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", errors.Annotate(err, "render %s", tmpl.Name()).Err()
	}
	return b.String(), nil
}

// FreesurferRunScript renders the recon-all run script.
func FreesurferRunScript(p FreesurferRun) (string, error) {
	return render(freesurferRunTmpl, p)
}

// PostFreesurferScript renders the ENIGMA extraction script.
func PostFreesurferScript(p PostFreesurfer) (string, error) {
	return render(postFreesurferTmpl, p)
}

// FmriprepJobScript renders a single-subject fMRIPrep job script.
func FmriprepJobScript(p FmriprepJob) (string, error) {
	return render(fmriprepJobTmpl, p)
}

// EnsureWritten writes content to path if the script does not exist yet.
// An existing, identical script is reused verbatim. An existing script
// with different content is an error carrying a line diff, so that a
// pipeline is never silently re-run with drifted options.
func EnsureWritten(path, content string) error {
	old, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			return errors.Annotate(err, "write run script").Err()
		}
		return nil
	}
	if err != nil {
		return errors.Annotate(err, "read existing run script").Err()
	}
	if string(old) == content {
		return nil
	}
	return errors.Reason("existing script %s does not match the parameters of this run:\n%s", path, diffLines(string(old), content)).Err()
}

// diffLines reports lines that differ between the existing script (-)
// and the one this run would write (+).
func diffLines(old, new string) string {
	oldLines := strings.Split(old, "\n")
	newLines := strings.Split(new, "\n")
	var b strings.Builder
	n := len(oldLines)
	if len(newLines) > n {
		n = len(newLines)
	}
	for i := 0; i < n; i++ {
		var o, w string
		if i < len(oldLines) {
			o = oldLines[i]
		}
		if i < len(newLines) {
			w = newLines[i]
		}
		if o == w {
			continue
		}
		if i < len(oldLines) {
			b.WriteString("- " + o + "\n")
		}
		if i < len(newLines) {
			b.WriteString("+ " + w + "\n")
		}
	}
	return b.String()
}

// WriteTemp writes content to a fresh executable temp file and returns
// its path. Used for one-shot job scripts that are deleted after
// submission.
func WriteTemp(content string) (string, error) {
	f, err := os.CreateTemp("", "*fmriprep_job")
	if err != nil {
		return "", errors.Annotate(err, "create job file").Err()
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return "", errors.Annotate(err, "write job file").Err()
	}
	if err := f.Close(); err != nil {
		return "", errors.Annotate(err, "close job file").Err()
	}
	if err := os.Chmod(f.Name(), 0o755); err != nil {
		return "", errors.Annotate(err, "chmod job file").Err()
	}
	return f.Name(), nil
}
