// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package status

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
)

func newTestApp() *cli.Application {
	return &cli.Application{
		Name:     "datman",
		Commands: []*subcommands.Command{StatusCmd},
	}
}

func TestStatusExitCodes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "freesurfer-checklist.csv")
	content := "id,T1_nii,date_ran,qc_rator,qc_rating,notes\n" +
		"STU_CMH_0001_01,a.nii.gz,2025-01-31,,,\n" +
		"STU_CMH_0002_01,b.nii.gz,,,,\n" +
		"STU_CMH_0003_01,,,,,no T1 found\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if ret := subcommands.Run(newTestApp(), []string{"status", path}); ret != 0 {
		t.Errorf("status on a valid checklist returned %d", ret)
	}
	if ret := subcommands.Run(newTestApp(), []string{"status", filepath.Join(dir, "missing.csv")}); ret == 0 {
		t.Error("status on a missing checklist returned 0")
	}
	if ret := subcommands.Run(newTestApp(), []string{"status"}); ret == 0 {
		t.Error("status without arguments returned 0")
	}
}
