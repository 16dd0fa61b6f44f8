// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package checklist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
)

func writeSubjectFiles(t *testing.T, inputDir, id string, names ...string) {
	t.Helper()
	dir := filepath.Join(inputDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("nii"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	cl, err := Load(filepath.Join(t.TempDir(), "freesurfer-checklist.csv"))
	if err != nil {
		t.Fatalf("Load on a missing checklist: %s", err)
	}
	if got := len(cl.Rows()); got != 0 {
		t.Errorf("expected empty checklist, got %d rows", got)
	}
}

func TestLoadBadHeader(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "freesurfer-checklist.csv")
	if err := os.WriteFile(path, []byte("subject,scan\nA,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for an unexpected header")
	}
}

func TestAddNewSubjects(t *testing.T) {
	t.Parallel()
	Convey("Adding subjects", t, func() {
		cl := New()
		cl.AddNewSubjects([]string{"STU_CMH_0001_01", "STU_CMH_0002_01"})
		cl.AddNewSubjects([]string{"STU_CMH_0002_01", "STU_CMH_0003_01"})

		var ids []string
		for _, r := range cl.Rows() {
			ids = append(ids, r.ID)
		}
		So(ids, ShouldResemble, []string{"STU_CMH_0001_01", "STU_CMH_0002_01", "STU_CMH_0003_01"})
	})
}

func TestFindImages(t *testing.T) {
	t.Parallel()
	Convey("With a nii input tree", t, func() {
		inputDir := t.TempDir()
		writeSubjectFiles(t, inputDir, "STU_CMH_0001_01", "STU_CMH_0001_01_T1_03.nii.gz")
		writeSubjectFiles(t, inputDir, "STU_CMH_0002_01",
			"STU_CMH_0002_01_T1_03.nii.gz", "STU_CMH_0002_01_T1_04.nii.gz")
		writeSubjectFiles(t, inputDir, "STU_CMH_0003_01", "STU_CMH_0003_01_DTI_05.nii.gz")

		newChecklist := func() *Checklist {
			cl := New()
			cl.AddNewSubjects([]string{"STU_CMH_0001_01", "STU_CMH_0002_01", "STU_CMH_0003_01"})
			return cl
		}

		Convey("a single match is recorded", func() {
			cl := newChecklist()
			So(cl.FindImages(inputDir, "_T1_", "", false), ShouldBeNil)
			So(cl.Rows()[0].T1Nii, ShouldEqual, "STU_CMH_0001_01_T1_03.nii.gz")
		})

		Convey("no match leaves a note", func() {
			cl := newChecklist()
			So(cl.FindImages(inputDir, "_T1_", "", false), ShouldBeNil)
			So(cl.Rows()[2].T1Nii, ShouldEqual, "")
			So(cl.Rows()[2].Notes, ShouldEqual, NoteNoT1)
		})

		Convey("multiple matches leave a note by default", func() {
			cl := newChecklist()
			So(cl.FindImages(inputDir, "_T1_", "", false), ShouldBeNil)
			So(cl.Rows()[1].T1Nii, ShouldEqual, "")
			So(cl.Rows()[1].Notes, ShouldEqual, NoteMultipleT1)
		})

		Convey("multiple matches are joined when allowed", func() {
			cl := newChecklist()
			So(cl.FindImages(inputDir, "_T1_", "", true), ShouldBeNil)
			So(cl.Rows()[1].T1Nii, ShouldEqual,
				"STU_CMH_0002_01_T1_03.nii.gz;STU_CMH_0002_01_T1_04.nii.gz")
		})

		Convey("a second tag narrows multiple matches", func() {
			cl := newChecklist()
			So(cl.FindImages(inputDir, "_T1_", "_T1_04", false), ShouldBeNil)
			So(cl.Rows()[1].T1Nii, ShouldEqual, "STU_CMH_0002_01_T1_04.nii.gz")
		})

		Convey("a hand-entered T1 is never replaced", func() {
			cl := newChecklist()
			cl.index["STU_CMH_0002_01"].T1Nii = "manual_override.nii.gz"
			So(cl.FindImages(inputDir, "_T1_", "", false), ShouldBeNil)
			So(cl.Rows()[1].T1Nii, ShouldEqual, "manual_override.nii.gz")
			So(cl.Rows()[1].Notes, ShouldEqual, "")
		})

		Convey("a hand-entered note is never replaced", func() {
			cl := newChecklist()
			cl.index["STU_CMH_0003_01"].Notes = "repeat scan, see wiki"
			So(cl.FindImages(inputDir, "_T1_", "", false), ShouldBeNil)
			So(cl.Rows()[2].Notes, ShouldEqual, "repeat scan, see wiki")
		})
	})
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "freesurfer-checklist.csv")
	cl := New()
	cl.AddNewSubjects([]string{"STU_CMH_0001_01"})
	cl.SetDateRan("STU_CMH_0001_01", "2025-01-31")
	cl.SetNote("STU_CMH_0001_01", "FS halted at IsRunning.lh+rh")
	if err := cl.Save(path); err != nil {
		t.Fatalf("Save: %s", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	want := []Row{{
		ID:      "STU_CMH_0001_01",
		DateRan: "2025-01-31",
		Notes:   "FS halted at IsRunning.lh+rh",
	}}
	if diff := cmp.Diff(want, got.Rows()); diff != "" {
		t.Errorf("reloaded checklist mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPadsShortRows(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "freesurfer-checklist.csv")
	content := "id,T1_nii,date_ran,qc_rator,qc_rating,notes\nSTU_CMH_0001_01,scan.nii.gz\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	rows := cl.Rows()
	if len(rows) != 1 || rows[0].T1Nii != "scan.nii.gz" || rows[0].Notes != "" {
		t.Errorf("short row not padded as expected: %+v", rows)
	}
}
