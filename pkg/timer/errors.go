// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// RuntimeError is returned when an accelerator runtime call fails. The device
// state is unknown afterwards and further measurements should not be trusted.
type RuntimeError struct {
	// Op is the runtime call that failed
	Op string
	// Code is the status returned by the runtime
	Code Status
	// Desc is the runtime's description of Code
	Desc string
	File string
	Line int
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s failed: %s (code %d) at %s:%d",
		e.Op, e.Desc, e.Code, filepath.Base(e.File), e.Line)
}

// Diagnostic formats the error the way the fatal path prints it
func (e *RuntimeError) Diagnostic() string {
	return fmt.Sprintf("GPUassert: %s %s %d", e.Desc, e.File, e.Line)
}

// newRuntimeError records the source location of its caller, or of the
// function skip frames further up the stack.
func newRuntimeError(rt Runtime, op string, st Status, skip int) *RuntimeError {
	_, file, line, _ := runtime.Caller(skip + 1)
	return &RuntimeError{
		Op:   op,
		Code: st,
		Desc: rt.ErrorString(st),
		File: file,
		Line: line,
	}
}

var (
	stdout io.Writer = os.Stdout
	exit             = os.Exit
)

// Check returns the fatal diagnostic line for err and the exit code the
// process should terminate with. It returns ok=false for a nil error.
func Check(err error) (diag string, code int, ok bool) {
	if err == nil {
		return "", 0, false
	}
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		code = int(rerr.Code)
		if code == 0 {
			code = 1
		}
		return rerr.Diagnostic(), code, true
	}
	return fmt.Sprintf("GPUassert: %s", err), 1, true
}

// Assert terminates the process if err is not nil, printing the diagnostic
// line to stdout and exiting with the runtime status code.
func Assert(err error) {
	diag, code, ok := Check(err)
	if !ok {
		return
	}
	fmt.Fprintln(stdout, diag)
	exit(code)
}
