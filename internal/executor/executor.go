// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package executor wraps external command execution so that the pipeline
// code can be exercised in tests without shelling out.
package executor

import (
	"fmt"
	"os/exec"
)

// IExecCommander is the interface used to run external commands.
type IExecCommander interface {
	Exec(*exec.Cmd) ([]byte, error)
}

// ExecCommander runs commands on the host.
type ExecCommander struct{}

// Exec runs the command and returns its combined output. On a non-zero
// exit the output is folded into the error so callers can surface it.
func (e *ExecCommander) Exec(cmd *exec.Cmd) ([]byte, error) {
	s, err := cmd.CombinedOutput()
	if err != nil {
		return s, fmt.Errorf("%w: %s", err, string(s))
	}
	return s, nil
}

// FakeCommander is used to fake a result when
// user write some test cases.
type FakeCommander struct {
	CmdOutput string
	Err       error
	FakeFn    func(*exec.Cmd) ([]byte, error)
}

func (f *FakeCommander) Exec(in *exec.Cmd) ([]byte, error) {
	if f.FakeFn != nil {
		return f.FakeFn(in)
	}
	return []byte(f.CmdOutput), f.Err
}
