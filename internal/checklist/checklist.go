// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package checklist reads and writes the per-study CSV checklists that
// track which subjects have been submitted to a pipeline.
package checklist

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"go.chromium.org/luci/common/errors"
)

// Columns is the canonical checklist header.
var Columns = []string{"id", "T1_nii", "date_ran", "qc_rator", "qc_rating", "notes"}

// Notes written by FindImages. Manual edits to the notes column are
// never overwritten.
const (
	NoteNoT1       = "no T1 found"
	NoteMultipleT1 = "multiple T1s found"
)

// A Row is one subject's entry in a checklist.
type Row struct {
	ID       string
	T1Nii    string
	DateRan  string
	QCRator  string
	QCRating string
	Notes    string
}

// A Checklist is an ordered set of rows keyed by subject id.
type Checklist struct {
	rows  []*Row
	index map[string]*Row
}

// New returns an empty checklist.
func New() *Checklist {
	return &Checklist{index: make(map[string]*Row)}
}

// Load reads a checklist CSV. A missing file yields an empty checklist
// so that first runs and re-runs share one code path.
func Load(path string) (*Checklist, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, errors.Annotate(err, "open checklist").Err()
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Rows hand-edited in a spreadsheet tool may be short.
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Annotate(err, "parse checklist %s", path).Err()
	}
	cl := New()
	if len(records) == 0 {
		return cl, nil
	}
	if records[0][0] != Columns[0] {
		return nil, errors.Reason("checklist %s has unexpected header %v", path, records[0]).Err()
	}
	for _, rec := range records[1:] {
		for len(rec) < len(Columns) {
			rec = append(rec, "")
		}
		if rec[0] == "" {
			continue
		}
		cl.append(&Row{
			ID:       rec[0],
			T1Nii:    rec[1],
			DateRan:  rec[2],
			QCRator:  rec[3],
			QCRating: rec[4],
			Notes:    rec[5],
		})
	}
	return cl, nil
}

func (c *Checklist) append(r *Row) {
	c.rows = append(c.rows, r)
	c.index[r.ID] = r
}

// AddNewSubjects appends rows for the given ids that are not yet in the
// checklist. Order of the incoming ids is preserved.
func (c *Checklist) AddNewSubjects(ids []string) {
	for _, id := range ids {
		if _, ok := c.index[id]; ok {
			continue
		}
		c.append(&Row{ID: id})
	}
}

// FindImages fills in the T1_nii column for rows that do not have one by
// globbing `<inputDir>/<id>/*<tag>*.nii*`. A second tag, when given,
// narrows multiple candidates. Rows the operator has already filled in
// are left alone, which is how repeat-scan overrides are expressed.
func (c *Checklist) FindImages(inputDir, tag, tag2 string, allowMultiple bool) error {
	for _, row := range c.rows {
		if row.T1Nii != "" {
			continue
		}
		pattern := filepath.Join(inputDir, row.ID, "*"+tag+"*.nii*")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return errors.Annotate(err, "glob %s", pattern).Err()
		}
		if tag2 != "" && len(matches) > 1 {
			var narrowed []string
			for _, m := range matches {
				if strings.Contains(filepath.Base(m), tag2) {
					narrowed = append(narrowed, m)
				}
			}
			matches = narrowed
		}
		switch {
		case len(matches) == 0:
			row.setNote(NoteNoT1)
		case len(matches) == 1:
			row.T1Nii = filepath.Base(matches[0])
		case allowMultiple:
			names := make([]string, len(matches))
			for i, m := range matches {
				names[i] = filepath.Base(m)
			}
			row.T1Nii = strings.Join(names, ";")
		default:
			row.setNote(NoteMultipleT1)
		}
	}
	return nil
}

func (r *Row) setNote(note string) {
	if r.Notes == "" {
		r.Notes = note
	}
}

// SetDateRan records the submission date for a subject.
func (c *Checklist) SetDateRan(id, date string) {
	if r, ok := c.index[id]; ok {
		r.DateRan = date
	}
}

// SetNote records a note for a subject unless one is already present.
func (c *Checklist) SetNote(id, note string) {
	if r, ok := c.index[id]; ok {
		r.setNote(note)
	}
}

// Rows returns a copy of the checklist rows in order.
func (c *Checklist) Rows() []Row {
	out := make([]Row, len(c.rows))
	for i, r := range c.rows {
		out[i] = *r
	}
	return out
}

// Save rewrites the checklist CSV. The write is guarded by a sidecar
// flock so two submitters cannot interleave rewrites.
func (c *Checklist) Save(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Annotate(err, "lock checklist %s", path).Err()
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return errors.Annotate(err, "write checklist").Err()
	}
	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		return errors.Annotate(err, "write checklist header").Err()
	}
	for _, r := range c.rows {
		rec := []string{r.ID, r.T1Nii, r.DateRan, r.QCRator, r.QCRating, r.Notes}
		if err := w.Write(rec); err != nil {
			f.Close()
			return errors.Annotate(err, "write checklist row %s", r.ID).Err()
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Annotate(err, "flush checklist").Err()
	}
	return f.Close()
}
