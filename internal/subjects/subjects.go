// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package subjects discovers and filters subject ids from a study's
// data directories.
package subjects

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.chromium.org/luci/common/errors"

	"github.com/kyjimmy/datman/internal/site"
)

// List returns the subject directories under dir, sorted, with phantom
// scans excluded.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Annotate(err, "list subjects in %s", dir).Err()
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if strings.Contains(e.Name(), site.PhantomTag) {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// FilterTag keeps ids containing tag. An empty tag keeps everything.
func FilterTag(ids []string, tag string) []string {
	if tag == "" {
		return ids
	}
	var out []string
	for _, id := range ids {
		if strings.Contains(id, tag) {
			out = append(out, id)
		}
	}
	return out
}

// FilterQCed keeps ids that have been signed off in the transfer QC
// checklist. Rows are `<id>,<signed_off_by>,...`; an id may appear as a
// QC page name like "qc_<id>.html". Ids without a sign-off are dropped.
func FilterQCed(ids []string, qcPath string) ([]string, error) {
	f, err := os.Open(qcPath)
	if err != nil {
		return nil, errors.Annotate(err, "open QC checklist").Err()
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Annotate(err, "parse QC checklist %s", qcPath).Err()
	}
	signedOff := make(map[string]bool)
	for _, rec := range records {
		if len(rec) < 2 || strings.TrimSpace(rec[1]) == "" {
			continue
		}
		id := strings.TrimSpace(rec[0])
		id = strings.TrimPrefix(id, "qc_")
		id = strings.TrimSuffix(id, ".html")
		signedOff[id] = true
	}
	var out []string
	for _, id := range ids {
		if signedOff[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// FilterUnprocessed drops ids that already have fmriprep output under
// outDir.
func FilterUnprocessed(ids []string, outDir string) []string {
	var out []string
	for _, id := range ids {
		if info, err := os.Stat(filepath.Join(outDir, id, "fmriprep")); err == nil && info.IsDir() {
			continue
		}
		out = append(out, id)
	}
	return out
}
