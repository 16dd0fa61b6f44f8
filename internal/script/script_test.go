// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFreesurferRunScript(t *testing.T) {
	t.Parallel()
	Convey("Rendering the recon-all wrapper", t, func() {
		Convey("without extra options", func() {
			got, err := FreesurferRunScript(FreesurferRun{SubjectsDir: "/archive/data/STU/pipelines/freesurfer"})
			So(err, ShouldBeNil)
			So(got, ShouldStartWith, "#!/bin/bash\n")
			So(got, ShouldContainSubstring, "export SUBJECTS_DIR=/archive/data/STU/pipelines/freesurfer\n")
			So(got, ShouldContainSubstring, "recon-all -all -subjid ${SUBJECT} ${T1MAPS} -qcache\n")
		})
		Convey("with an extra option", func() {
			got, err := FreesurferRunScript(FreesurferRun{
				SubjectsDir: "/out",
				ExtraOption: "-notal-check",
			})
			So(err, ShouldBeNil)
			So(got, ShouldContainSubstring, "recon-all -all -notal-check -subjid ${SUBJECT} ${T1MAPS} -qcache\n")
		})
	})
}

func TestPostFreesurferScript(t *testing.T) {
	t.Parallel()
	got, err := PostFreesurferScript(PostFreesurfer{SubjectsDir: "/out", Prefix: "STU"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"export SUBJECTS_DIR=/out\n",
		"ENIGMA_ExtractCortical.sh ${SUBJECTS_DIR} STU\n",
		"ENIGMA_ExtractSubcortical.sh ${SUBJECTS_DIR} STU\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("post script missing %q:\n%s", want, got)
		}
	}
}

func TestFmriprepJobScript(t *testing.T) {
	t.Parallel()
	got, err := FmriprepJobScript(FmriprepJob{
		BidsDir:          "/archive/data/STU/data/bids",
		SingularityImage: "/containers/fmriprep.img",
		ParticipantLabel: "sub-CMH0001",
		OutDir:           "/out/STU_CMH_0001_01",
		FSLicense:        "/licenses/license.txt",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"BIDS=/archive/data/STU/data/bids\n",
		"SIMG=/containers/fmriprep.img\n",
		"SUB=sub-CMH0001\n",
		"OUT=/out/STU_CMH_0001_01\n",
		"cp /licenses/license.txt $LICENSE/license.txt\n",
		"trap cleanup EXIT\n",
		"participant --participant-label $SUB",
		"--fs-license-file /li/license.txt\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("job script missing %q:\n%s", want, got)
		}
	}
}

func TestEnsureWritten(t *testing.T) {
	t.Parallel()
	Convey("With a bin directory", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "run_freesurfer.sh")

		Convey("a missing script is written executable", func() {
			So(EnsureWritten(path, "#!/bin/bash\necho one\n"), ShouldBeNil)
			info, err := os.Stat(path)
			So(err, ShouldBeNil)
			So(int(info.Mode().Perm()&0o111), ShouldNotEqual, 0)
		})

		Convey("an identical script is reused", func() {
			So(EnsureWritten(path, "#!/bin/bash\necho one\n"), ShouldBeNil)
			So(EnsureWritten(path, "#!/bin/bash\necho one\n"), ShouldBeNil)
		})

		Convey("a drifted script is an error carrying the diff", func() {
			So(EnsureWritten(path, "#!/bin/bash\necho one\n"), ShouldBeNil)
			err := EnsureWritten(path, "#!/bin/bash\necho two\n")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "- echo one")
			So(err.Error(), ShouldContainSubstring, "+ echo two")

			// The original script is left untouched.
			b, readErr := os.ReadFile(path)
			So(readErr, ShouldBeNil)
			So(string(b), ShouldEqual, "#!/bin/bash\necho one\n")
		})
	})
}

func TestWriteTemp(t *testing.T) {
	t.Parallel()
	path, err := WriteTemp("#!/bin/bash\ntrue\n")
	if err != nil {
		t.Fatalf("WriteTemp: %s", err)
	}
	defer os.Remove(path)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "#!/bin/bash\ntrue\n" {
		t.Errorf("unexpected job file content: %q", b)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Error("job file is not executable")
	}
}
